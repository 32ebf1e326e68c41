package snapshots

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshots: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

const version = 2

type wireSnapshot struct {
	Version   int               `cbor:"1,keyasint"`
	Functions []wireFunction    `cbor:"2,keyasint,omitempty"`
	Code      []wireInstruction `cbor:"3,keyasint,omitempty"`
	Frames    []wireFrame       `cbor:"4,keyasint"`
	Stack     []wireValue       `cbor:"5,keyasint,omitempty"`
	Budget    int               `cbor:"6,keyasint,omitempty"`
}

type wireFunction struct {
	Name          string            `cbor:"1,keyasint"`
	ArgCount      int               `cbor:"2,keyasint,omitempty"`
	VariableCount int               `cbor:"3,keyasint,omitempty"`
	Code          []wireInstruction `cbor:"4,keyasint,omitempty"`
}

type wireFrame struct {
	ReturnOffset    int              `cbor:"1,keyasint"`
	ArgOffset       int              `cbor:"2,keyasint"`
	VariablesOffset int              `cbor:"3,keyasint"`
	VtableIndex     int              `cbor:"4,keyasint"`
	OperationIndex  int              `cbor:"5,keyasint"`
	Destination     *wireDestination `cbor:"6,keyasint,omitempty"`
	ReturnValue     *wireValue       `cbor:"7,keyasint,omitempty"`
}

type wireValue struct {
	Kind uint8 `cbor:"1,keyasint"`
	Int  int64 `cbor:"2,keyasint,omitempty"`
	// RealBits holds the IEEE 754 bits so signed zeros and NaN payloads
	// survive the canonical encoding.
	RealBits uint64          `cbor:"3,keyasint,omitempty"`
	Bool     bool            `cbor:"4,keyasint,omitempty"`
	Dynamic  string          `cbor:"5,keyasint,omitempty"`
	Payload  cbor.RawMessage `cbor:"6,keyasint,omitempty"`
}

type wireSource struct {
	Kind  uint8 `cbor:"1,keyasint"`
	Index int   `cbor:"2,keyasint,omitempty"`
}

type wireOperand struct {
	Source *wireSource `cbor:"1,keyasint,omitempty"`
	Value  *wireValue  `cbor:"2,keyasint,omitempty"`
}

type wireDestination struct {
	Kind  uint8 `cbor:"1,keyasint"`
	Index int   `cbor:"2,keyasint,omitempty"`
}

type opcode uint8

const (
	opAdd opcode = iota + 1
	opSub
	opMultiply
	opDivide
	opIf
	opJumpTo
	opCompare
	opPush
	opPushCopy
	opPopAndDrop
	opReturn
	opLoad
	opCall
	opCallInstance
)

type wireInstruction struct {
	Op          opcode           `cbor:"1,keyasint"`
	Left        *wireSource      `cbor:"2,keyasint,omitempty"`
	Right       *wireOperand     `cbor:"3,keyasint,omitempty"`
	Destination *wireDestination `cbor:"4,keyasint,omitempty"`
	Comparison  uint8            `cbor:"5,keyasint,omitempty"`
	Jump        *int             `cbor:"6,keyasint,omitempty"`
	Value       *wireValue       `cbor:"7,keyasint,omitempty"`
	Index       int              `cbor:"8,keyasint,omitempty"`
	ArgCount    int              `cbor:"9,keyasint,omitempty"`
	Name        string           `cbor:"10,keyasint,omitempty"`
}

package main

import (
	"github.com/ModProg/budlang/debugs"
	"github.com/ModProg/budlang/sessions"
	"github.com/reusee/dscope"
)

type Module struct {
	dscope.Module
	Sessions sessions.Module
	Debugs   debugs.Module
}

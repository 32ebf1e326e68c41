package budvm

import "testing"

func BenchmarkRecursion(b *testing.B) {
	vm := New().WithFunction("sum", sumFunction)
	for b.Loop() {
		if _, err := vm.Call("sum", Int(100)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBudgetedResume(b *testing.B) {
	for b.Loop() {
		vm := New(WithEnvironment(NewBudgeted(16))).WithFunction("sum", sumFunction)
		_, err := vm.Call("sum", Int(50))
		for err != nil {
			cont, ok := AsPaused(err)
			if !ok {
				b.Fatal(err)
			}
			cont.Environment().(*Budgeted).AddBudget(16)
			_, err = cont.Resume()
		}
	}
}

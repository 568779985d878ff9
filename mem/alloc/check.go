package alloc

import "github.com/joshuapare/segalloc/mem/verify"

// Check validates the heap and returns the report. It never modifies the
// heap and never aborts.
func (a *Allocator) Check(label string) *verify.Report {
	return verify.Check(label, verify.Heap{
		Data:     a.data,
		Prologue: a.prologue,
		Heads:    a.heads[:],
	})
}

// MustCheck validates the heap and hands a failing report to
// Config.OnCorruption after logging it.
func (a *Allocator) MustCheck(label string) {
	r := a.Check(label)
	if r.OK() {
		return
	}
	for _, v := range r.Violations {
		a.log.Error("heap check failed",
			"label", label, "type", v.Type, "offset", v.Offset, "related", v.Related, "message", v.Message)
	}
	a.cfg.OnCorruption(r)
}

func (a *Allocator) debugCheck(label string) {
	if a.cfg.CheckEveryOp {
		a.MustCheck(label)
	}
}

package builtins

import (
	"github.com/quantlab/backsim/store"
	"github.com/quantlab/backsim/strategy"
)

// RegisterAll wires the shipped strategies into reg with their default
// parameters. source feeds the option strategies their recorded premiums.
func RegisterAll(reg *strategy.Registry, source store.DataSource) {
	reg.RegisterBar(NewSMACross(0, 0))
	reg.RegisterBatch(NewShortStrangle(source, StrangleConfig{}))
}

package registry

import (
	"github.com/user/framepipe/pkg/algorithms/converter"
	"github.com/user/framepipe/pkg/algorithms/scaler"
	"github.com/user/framepipe/pkg/algorithms/splitter"
	"github.com/user/framepipe/pkg/pipeline"
)

// builtinCatalog lists the CPU serial algorithms per module.
func builtinCatalog() map[pipeline.Module][]pipeline.AlgEntry {
	return map[pipeline.Module][]pipeline.AlgEntry{
		pipeline.ModuleConverter: converter.Entries(),
		pipeline.ModuleScaler:    scaler.Entries(),
		pipeline.ModuleSplitter:  splitter.Entries(),
	}
}

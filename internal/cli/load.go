package cli

import (
	"os"

	"github.com/roach88/shopsched/internal/compiler"
	"github.com/roach88/shopsched/internal/ir"
)

// loadInstance reads an instance file and reports failures through f.
func loadInstance(f *OutputFormatter, path string) (*ir.Instance, error) {
	if err := checkPath(f, path); err != nil {
		return nil, err
	}
	inst, err := compiler.LoadInstance(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load instance", err)
	}
	f.VerboseLog("loaded %s: %d machines, %d jobs", path, len(inst.Machines), len(inst.Jobs))
	return inst, nil
}

// loadLine reads a production-line file and reports failures through f.
func loadLine(f *OutputFormatter, path string) (*ir.ProductionLine, error) {
	if err := checkPath(f, path); err != nil {
		return nil, err
	}
	line, err := compiler.LoadLine(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load line", err)
	}
	f.VerboseLog("loaded %s: %d modules", path, len(line.Modules))
	return line, nil
}

func checkPath(f *OutputFormatter, path string) error {
	if _, err := os.Stat(path); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "file not found: "+path, err)
	}
	return nil
}

package driver

import (
	"os"
	"path/filepath"

	"github.com/Happy-Ferret/kvasir/common"
	"github.com/Happy-Ferret/kvasir/report"

	"github.com/pelletier/go-toml"
)

// ProjectFileName is the name of the optional project file looked up next to
// the root source file.
const ProjectFileName = "kvasir.toml"

// tomlProject represents a Kvasir project as it is encoded in TOML.
type tomlProject struct {
	Name          string   `toml:"name"`
	KvasirVersion string   `toml:"kvasir-version"`
	Output        string   `toml:"output"`
	LinkLibs      []string `toml:"link-libs"`
	ImportPaths   []string `toml:"import-paths"`
}

// ProjectConfig is the loaded configuration of a compilation.
type ProjectConfig struct {
	// Name is the project name; it defaults to the root file's base name.
	Name string

	// Output is the configured output path, empty when unset.
	Output string

	// LinkLibs are additional libraries forwarded to the linker.
	LinkLibs []string

	// ImportPaths are additional directories searched by `import`, relative
	// to the project directory.
	ImportPaths []string
}

// LoadProjectConfig loads the project file from the given directory if one
// exists.  A missing file is not an error: every setting has a flag or a
// default.  A malformed file is fatal.
func LoadProjectConfig(dir string) *ProjectConfig {
	buff, err := os.ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		return nil
	}

	tomlProj := &tomlProject{}
	if err := toml.Unmarshal(buff, tomlProj); err != nil {
		report.ReportFatal("error parsing project file in `%s`: %s", dir, err.Error())
	}

	if tomlProj.KvasirVersion != "" && tomlProj.KvasirVersion != common.KvasirVersion {
		report.DisplayInfoMessage("Warning",
			"project targets kvasir v"+tomlProj.KvasirVersion+" but this compiler is v"+common.KvasirVersion)
	}

	cfg := &ProjectConfig{
		Name:     tomlProj.Name,
		Output:   tomlProj.Output,
		LinkLibs: tomlProj.LinkLibs,
	}

	for _, imp := range tomlProj.ImportPaths {
		if filepath.IsAbs(imp) {
			cfg.ImportPaths = append(cfg.ImportPaths, imp)
		} else {
			cfg.ImportPaths = append(cfg.ImportPaths, filepath.Join(dir, imp))
		}
	}

	return cfg
}

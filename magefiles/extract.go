//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Extract builds the CLI and runs it against the pipeline file in the
// working directory (blockhead.yaml or blockhead.hcl).
func Extract() error {
	mg.Deps(Build)

	config := ""
	for _, name := range []string{"blockhead.yaml", "blockhead.yml", "blockhead.hcl"} {
		if _, err := os.Stat(name); err == nil {
			config = name
			break
		}
	}
	if config == "" {
		return fmt.Errorf("no pipeline file found; run mage init to create blockhead.yaml")
	}
	return sh.RunV(filepath.Join(binDir, binName), "extract", "--config", config)
}

const samplePipeline = `# blockhead pipeline
sources:
  - "src/**/*.html"
  - "!src/vendor/**"
blocks:
  - id: script
    name: "{{.Dir}}/{{.Base}}.js"
    dedent: true
  - id: style
    name: "{{.Dir}}/{{.Base}}.css"
    trim: true
default:
  include: ["**/*.html"]
backpressure: warn
output_dir: build
store_path: build/blockhead.db
`

// Init writes a sample blockhead.yaml unless one exists.
func Init() error {
	const name = "blockhead.yaml"
	if _, err := os.Stat(name); err == nil {
		fmt.Printf("%s already exists\n", name)
		return nil
	}
	if err := os.WriteFile(name, []byte(samplePipeline), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	fmt.Printf("Created %s\n", name)
	return nil
}

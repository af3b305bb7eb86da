package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/shapeshifter/pkg/config"
)

// ExampleNewConvertConfig demonstrates the defaults of a conversion job.
func ExampleNewConvertConfig() {
	cfg := config.NewConvertConfig()

	fmt.Printf("Index: %s\n", cfg.Index)
	fmt.Printf("Compression level: %d\n", cfg.Output.CompressionLevel)
	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)

	// Output:
	// Index: Sample
	// Compression level: 5
	// Log level: warn
}

// ExampleConvertConfig_Validate shows how to validate a configuration
// before running it.
func ExampleConvertConfig_Validate() {
	cfg := config.NewConvertConfig()
	cfg.Input.Path = "cohort.tsv"
	cfg.Output.Path = "cohort.parquet"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Output.Path = "cohort.xlsx"
	fmt.Println(cfg.Validate() != nil)

	// Output:
	// Configuration is valid!
	// true
}

// ExampleLoadConvertConfig demonstrates loading a job file with
// environment variable substitution.
func ExampleLoadConvertConfig() {
	dir, err := os.MkdirTemp("", "shapeshifter-config")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	os.Setenv("COHORT_DIR", "/data/cohort")
	defer os.Unsetenv("COHORT_DIR")

	job := `
input:
  path: ${COHORT_DIR}/samples.tsv.gz
output:
  path: ${OUT_DIR:-/tmp}/samples.parquet
  gzip: true
columns: [Age, Sex]
filter:
  continuous:
    - {column: Age, operator: ">", value: 30}
  discrete:
    - {column: Sex, values: [M, F]}
`
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(job), 0o600); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.LoadConvertConfig(path)
	if err != nil {
		log.Fatal(err)
	}
	expr, err := cfg.Filter.Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Input.Path)
	fmt.Println(cfg.Output.Path)
	fmt.Println(cfg.Index)
	fmt.Println(expr)

	// Output:
	// /data/cohort/samples.tsv.gz
	// /tmp/samples.parquet
	// Sample
	// Age>30 and (Sex=='M' or Sex=='F')
}

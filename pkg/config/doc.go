// Package config provides the configuration of a conversion job.
//
// A job is described by a ConvertConfig, usually loaded from YAML. Values of
// the form ${VAR_NAME} are replaced with environment variables before
// parsing.
//
//	input:
//	  path: cohort.tsv.gz
//	output:
//	  path: cohort.parquet
//	  gzip: true
//	columns: [Age, Sex]
//	filter:
//	  continuous:
//	    - {column: Age, operator: ">", value: 30}
//	  discrete:
//	    - {column: Sex, values: [M, F]}
//	index: Sample
//
// Load it with defaults applied and validate it:
//
//	cfg, err := config.LoadConvertConfig("job.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Command line flags override file values.
package config

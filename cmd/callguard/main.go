// callguard demonstrates the failure-policy pipeline.
//
// Usage:
//
//	callguard run                      # invoke the sample matrix, print a table
//	callguard run --format json        # same, as JSON
//	callguard serve --grpc-addr :50051 # host SampleService behind the pipeline
//	callguard call Both --addr localhost:50051
//	callguard policies --policy-file policies.yaml
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import "github.com/pelagiclabs/annotator/pkg/sentinel"

// runSentinel starts the sentinel supervisor for the server.
func runSentinel() {
	sentinel.Run()
}

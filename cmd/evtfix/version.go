package main

// version is set at link time with -ldflags "-X main.version=..."
var version = "dev"

func getVersionString() string {
	return version
}

// Package worker builds and runs the external update worker: the
// long-running, notify-socket-reporting invocations driven by Job lifecycle
// (see Invoker) and the short synchronous queries used by discovery and
// read-only property lookups (see RunQuery).
package worker

import "github.com/sysupdate-systems/updated/internal/updated/domain"

// buildArgv assembles the worker command line shared by both the async and
// synchronous invocation paths:
//
//	<path> --json=short [--verify=no] [<target-selector>] [--offline] <verb> [<version>]
func buildArgv(path string, skipVerify bool, target *domain.Target, offline bool, verb string, version string) []string {
	argv := []string{path, "--json=short"}
	if skipVerify {
		argv = append(argv, "--verify=no")
	}
	if target != nil {
		if sel := target.Selector(); sel != "" {
			argv = append(argv, sel)
		}
	}
	if offline {
		argv = append(argv, "--offline")
	}
	argv = append(argv, verb)
	if version != "" {
		argv = append(argv, version)
	}
	return argv
}

// BuildJobArgv builds the argument vector for a Job's worker invocation.
// Describe reuses the "list" verb with the version as its trailing
// argument; every other type maps directly to Type.Verb.
func BuildJobArgv(path string, skipVerify bool, job *domain.Job) []string {
	verb := job.Type.Verb()
	version := ""
	switch job.Type {
	case domain.TypeDescribe:
		version = job.Version
	case domain.TypeUpdate:
		version = job.Version
	}
	return buildArgv(path, skipVerify, job.Target, job.Offline, verb, version)
}

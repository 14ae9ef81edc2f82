/*
Package main implements watchf, a build-and-run supervisor.

watchf runs a build command that reports its results as line-delimited
JSON (cargo's --message-format json), records the executables it produced
and rebuilds whenever a watched file changes after the last build. In run
mode it also starts a long-lived run command and restarts it after every
successful build.

# Configuration

watchf reads watchf.yaml (or the file given with -c):

	build_cmd: ["cargo", "build"]
	run_cmd: ["cargo", "run", "--", "--port", "$PORT"]
	watch: ["src", "Cargo.toml"]
	ignore: ["*.swp", "target"]
	vars:
	  PORT: "8080"
	on_build_failure: wait
	stop_signal: SIGTERM
	stop_timeout: 5s
	prologue: ["echo starting"]
	epilogue: ["echo bye"]

Variables are written $NAME or ${NAME}; they resolve to the built-ins cwd
and config_dir, then vars, then the environment. $$ is a literal dollar.

# Rebuild rule

A change triggers a rebuild when the changed path is newer than the start
of the last build and newer than at least one recorded executable.
Removals never trigger. After a failed build under on_build_failure: wait
any change after that build triggers a retry.

# Commands

	watchf build [-c FILE] [-v] [--once]
	watchf run [-c FILE] [-v]
	watchf validate [-c FILE] [-f table|json|yaml]

Logs go to stderr. WATCHF_LOG=json selects JSON logs.

# Exit codes

0 after SIGINT or SIGTERM, 1 for other errors, 2 for configuration errors,
3 when a watch target cannot be watched, 4 for build failures, 5 for run
command failures under on_restart_failure: abort and 6 for failing hooks.
*/
package main

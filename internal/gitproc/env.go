package gitproc

import (
	"os"
	"slices"
	"strings"
	"sync"
)

// allowedEnv is the set of environment variables git subprocesses inherit.
// Everything else (shell prompt customization, unrelated tool state) is
// stripped so a run is reproducible regardless of the caller's shell.
var allowedEnv = []string{
	"HOME",
	"PATH",
	"TZ",
	"LANG",
	"LD_LIBRARY_PATH",
	"all_proxy",
	"http_proxy",
	"HTTP_PROXY",
	"https_proxy",
	"HTTPS_PROXY",
	"no_proxy",
	"NO_PROXY",
	"GIT_SSH",
	"GIT_SSH_COMMAND",
	"GIT_EDITOR",
	"EDITOR",
	"SSH_AUTH_SOCK",
	"SSH_AGENT_PID",
	"GIT_TRACE",
	"GIT_AUTHOR_NAME",
	"GIT_AUTHOR_EMAIL",
	"GIT_AUTHOR_DATE",
	"GIT_COMMITTER_NAME",
	"GIT_COMMITTER_EMAIL",
	"GIT_COMMITTER_DATE",
}

var Environ = sync.OnceValue(func() []string {
	cleanEnv := make([]string, 0, len(allowedEnv))
	for _, e := range allowedEnv {
		if v, ok := os.LookupEnv(e); ok {
			cleanEnv = append(cleanEnv, e+"="+v)
		}
	}
	slices.Sort(cleanEnv)
	return cleanEnv
})

// SanitizerEnv returns os.Environ() with the given keys removed; used when
// a caller needs the full ambient environment minus a few names it intends
// to set itself (e.g. GIT_AUTHOR_* when committing with an explicit author).
func SanitizerEnv(removeKey ...string) []string {
	removeMap := make(map[string]bool, len(removeKey))
	for _, k := range removeKey {
		removeMap[k] = true
	}
	origin := os.Environ()
	env := make([]string, 0, len(origin))
	for _, e := range origin {
		k, _, ok := strings.Cut(e, "=")
		if !ok || removeMap[k] {
			continue
		}
		env = append(env, e)
	}
	return env
}

package rdb

// SetAfterDemoteHook installs a hook that runs inside Activate after the
// previous active version was demoted. It returns a function restoring the
// previous hook.
func SetAfterDemoteHook(hook func() error) func() {
	prev := afterDemote
	afterDemote = hook
	return func() { afterDemote = prev }
}

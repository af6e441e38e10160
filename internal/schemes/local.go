package schemes

import "github.com/jaxxstorm/scmver/internal/scmversion"

// NodeAndDate is the default local scheme: clean ⇒ empty; dirty-only ⇒
// "dYYYYMMDD"; distance ⇒ the node hash; distance+dirty ⇒
// "{node}.d{YYYYMMDD}".
func NodeAndDate(v *scmversion.ScmVersion) string {
	return nodeAndTime(v, v.Date(false))
}

// NodeAndTimestamp is NodeAndDate with a "YYYYMMDDhhmmss" stamp instead
// of a bare date.
func NodeAndTimestamp(v *scmversion.ScmVersion) string {
	return nodeAndTime(v, v.Timestamp())
}

func nodeAndTime(v *scmversion.ScmVersion, stamp string) string {
	switch {
	case v.Clean():
		return ""
	case v.Distance == 0 && v.Dirty:
		return "d" + stamp
	case v.Distance > 0 && !v.Dirty:
		return v.Node
	default: // distance > 0 && dirty
		return v.Node + ".d" + stamp
	}
}

// DirtyTag emits "dirty" only when the tree is dirty, regardless of
// distance.
func DirtyTag(v *scmversion.ScmVersion) string {
	if v.Dirty {
		return "dirty"
	}
	return ""
}

// NoLocalVersion always emits no local segment, for versions uploaded to
// indexes that disallow "+local" segments.
func NoLocalVersion(v *scmversion.ScmVersion) string {
	return ""
}

// Compose joins a main scheme's output with a local scheme's output,
// omitting the "+" separator when the local segment is empty.
func Compose(main string, local string) string {
	if local == "" {
		return main
	}
	return main + "+" + local
}

package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chanfeed/internal/errs"
)

// Ref is a parsed channel reference. Exactly one of Handle and ChannelID is set.
type Ref struct {
	Handle    string
	ChannelID string
}

var (
	handlePattern    = regexp.MustCompile(`^@[\p{L}\p{N}_.\-]+$`)
	channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)
	shellChars       = regexp.MustCompile("[;&|`$(){}\\[\\]<>\\\\'\"\\s]")
)

const maxHandleLen = 100

// ParseHandle turns a channel URL, handle or bare channel id into a Ref.
//
// Accepted forms:
//
//	@name
//	name
//	https://www.youtube.com/@name/videos?x=y
//	https://www.youtube.com/channel/UCxxxxxxxxxxxxxxxxxxxxxx
//	https://www.youtube.com/c/name, https://www.youtube.com/user/name
//	UCxxxxxxxxxxxxxxxxxxxxxx
//
// Input that cannot be reduced to a valid handle is rejected with
// errs.ErrValidation.
func ParseHandle(input string) (Ref, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: channel url or handle is required", errs.ErrValidation)
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}

	if channelIDPattern.MatchString(decoded) {
		return Ref{ChannelID: decoded}, nil
	}
	if id, ok := segmentAfter(decoded, "/channel/"); ok {
		if !channelIDPattern.MatchString(id) {
			return Ref{}, fmt.Errorf("%w: invalid channel id %q", errs.ErrValidation, id)
		}
		return Ref{ChannelID: id}, nil
	}

	var name string
	switch {
	case strings.Contains(decoded, "@"):
		_, name, _ = strings.Cut(decoded, "@")
		name = cutPath(name)
	default:
		if n, ok := segmentAfter(decoded, "/c/"); ok {
			name = n
		} else if n, ok := segmentAfter(decoded, "/user/"); ok {
			name = n
		} else if strings.Contains(decoded, "://") || strings.Contains(decoded, "/") {
			return Ref{}, fmt.Errorf("%w: unrecognized channel url %q", errs.ErrValidation, raw)
		} else {
			name = decoded
		}
	}

	handle := "@" + shellChars.ReplaceAllString(name, "")
	if len(handle) > maxHandleLen || !handlePattern.MatchString(handle) {
		return Ref{}, fmt.Errorf("%w: invalid handle %q", errs.ErrValidation, raw)
	}
	return Ref{Handle: handle}, nil
}

// segmentAfter returns the path segment following marker.
func segmentAfter(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	return cutPath(s[i+len(marker):]), true
}

func cutPath(s string) string {
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		return s[:i]
	}
	return s
}

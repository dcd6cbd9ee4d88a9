package domain

import (
	"strconv"
	"strings"
)

// NotifyMessage is a single datagram received on the notify socket, parsed
// into the handful of keys the worker protocol defines. A datagram may set
// any subset of these; zero-value fields mean "not present in this
// datagram", not "explicitly zero".
type NotifyMessage struct {
	Ready bool

	Version    string
	HasVersion bool

	Progress    uint32
	HasProgress bool

	Errno    int
	HasErrno bool
}

// ParseNotifyMessage splits a raw datagram into KEY=VALUE lines and
// extracts the keys the daemon understands. Unknown keys and malformed
// lines are ignored rather than rejecting the whole datagram, matching the
// permissive style of sd_notify payloads in the wild. Progress values
// above 100 are dropped (callers should log a warning) since the worker
// protocol promises a 0-100 percentage.
func ParseNotifyMessage(raw []byte) NotifyMessage {
	var msg NotifyMessage
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "READY":
			if value == "1" {
				msg.Ready = true
			}
		case "X_SYSUPDATE_VERSION":
			msg.Version = value
			msg.HasVersion = true
		case "X_SYSUPDATE_PROGRESS":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n > 100 {
				continue
			}
			msg.Progress = uint32(n)
			msg.HasProgress = true
		case "ERRNO":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				continue
			}
			msg.Errno = n
			msg.HasErrno = true
		}
	}
	return msg
}

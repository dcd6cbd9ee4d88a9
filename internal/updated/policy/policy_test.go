package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowAllCheckerAlwaysAllows(t *testing.T) {
	c := AllowAllChecker{}
	decision, err := c.Check(context.Background(), Caller{BusName: ":1.1"}, Detail{Action: "org.freedesktop.sysupdate1.update"})
	require.NoError(t, err)
	assert.Equal(t, Allowed, decision)
}

func TestExternalCheckerWithoutDialIsDenied(t *testing.T) {
	c := &ExternalChecker{}
	decision, err := c.Check(context.Background(), Caller{}, Detail{})
	require.Error(t, err)
	assert.Equal(t, Denied, decision)
}

func TestExternalCheckerDelegatesToDial(t *testing.T) {
	wantErr := errors.New("backend unreachable")
	c := &ExternalChecker{
		Dial: func(ctx context.Context, caller Caller, detail Detail) (Decision, error) {
			assert.Equal(t, "org.freedesktop.sysupdate1.vacuum", detail.Action)
			return Denied, wantErr
		},
	}
	decision, err := c.Check(context.Background(), Caller{BusName: ":1.2"}, Detail{Action: "org.freedesktop.sysupdate1.vacuum"})
	assert.True(t, errors.Is(err, wantErr))
	assert.Equal(t, Denied, decision)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableID(t *testing.T) {
	cases := []struct {
		name   string
		target *Target
		want   string
	}{
		{"host", NewHostTarget("/"), "host"},
		{"component", NewComponentTarget("foo", "/opt/foo"), "component:foo"},
		{"machine", NewImageTarget(ClassMachine, "bar", "/var/lib/machines/bar.raw", ImageRaw), "machine:bar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.target.StableID())
		})
	}
}

func TestSelector(t *testing.T) {
	cases := []struct {
		name   string
		target *Target
		want   string
	}{
		{"host", NewHostTarget("/"), ""},
		{"component", NewComponentTarget("foo", "/opt/foo"), "--component=foo"},
		{"directory", NewImageTarget(ClassSysext, "bar", "/var/lib/extensions/bar", ImageDirectory), "--root=/var/lib/extensions/bar"},
		{"raw", NewImageTarget(ClassPortable, "baz", "/var/lib/portables/baz.raw", ImageRaw), "--image=/var/lib/portables/baz.raw"},
		{"block-device", NewImageTarget(ClassMachine, "qux", "/dev/sdb1", ImageBlockDevice), "--image=/dev/sdb1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.target.Selector())
		})
	}
}

func TestObjectPathSegmentEscapesSpecialCharacters(t *testing.T) {
	target := NewComponentTarget("my-comp", "/opt/my-comp")
	assert.Equal(t, "component_3amy_2dcomp", target.ObjectPathSegment())
}

func TestObjectPathSegmentStartsWithLetter(t *testing.T) {
	// StableID always begins with "host" or "<class>:", so a digit in a
	// component name never lands at position zero and never needs the
	// leading-digit escape; this just pins that assumption.
	target := NewComponentTarget("1foo", "/opt/1foo")
	got := target.ObjectPathSegment()
	assert.True(t, got[0] >= 'a' && got[0] <= 'z', "expected object path segment to start with a letter, got %q", got)
}

func TestBusyFlag(t *testing.T) {
	target := NewHostTarget("/")
	assert.False(t, target.IsBusy())
	target.SetBusy(true)
	assert.True(t, target.IsBusy())
	target.SetBusy(false)
	assert.False(t, target.IsBusy())
}

func TestIsImageClass(t *testing.T) {
	for _, c := range []Class{ClassMachine, ClassPortable, ClassSysext, ClassConfext} {
		assert.True(t, c.IsImageClass(), "expected %s to be an image class", c)
	}
	for _, c := range []Class{ClassHost, ClassComponent} {
		assert.False(t, c.IsImageClass(), "expected %s not to be an image class", c)
	}
}

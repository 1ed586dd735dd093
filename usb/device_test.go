//go:build linux

package usb

import (
	"testing"

	"github.com/jhol/cannelloni/pkg"
)

func TestCompletionStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int32
		timedOut bool
		want     pkg.TransferStatus
	}{
		{"success", URBStatusSuccess, false, pkg.TransferCompleted},
		{"discarded before start", URBStatusNoEnt, false, pkg.TransferCancelled},
		{"discarded in progress", URBStatusConnReset, false, pkg.TransferCancelled},
		{"deadline discard before start", URBStatusNoEnt, true, pkg.TransferTimedOut},
		{"deadline discard in progress", URBStatusConnReset, true, pkg.TransferTimedOut},
		{"stall", URBStatusPipe, false, pkg.TransferError},
		{"disconnect", URBStatusNoDev, false, pkg.TransferError},
		{"shutdown", URBStatusShutdown, false, pkg.TransferError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completionStatus(tt.status, tt.timedOut); got != tt.want {
				t.Errorf("completionStatus(%d, %v) = %v, want %v",
					tt.status, tt.timedOut, got, tt.want)
			}
		})
	}
}

func TestIoctlNumbers(t *testing.T) {
	// Spot-check the computed ioctl request codes against the values the
	// kernel headers produce on 64-bit Linux.
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"submiturb", ioctlUsbdevfsSubmitURB, 0x8038550a},
		{"discardurb", ioctlUsbdevfsDiscardURB, 0x0000550b},
		{"reapurbndelay", ioctlUsbdevfsReapURBNDelay, 0x4008550d},
		{"claiminterface", ioctlUsbdevfsClaimInterface, 0x8004550f},
		{"releaseinterface", ioctlUsbdevfsReleaseInterface, 0x80045510},
		{"setinterface", ioctlUsbdevfsSetInterface, 0x80085504},
		{"control", ioctlUsbdevfsControl, 0xc0185500},
		{"reset", ioctlUsbdevfsReset, 0x00005514},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("request code = %#x, want %#x", tt.got, tt.want)
			}
		})
	}
}

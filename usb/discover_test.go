//go:build linux

package usb

import "testing"

func TestParseDeviceID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		vid     uint16
		pid     uint16
		wantErr bool
	}{
		{"fx2lp default", "04b4:8613", 0x04b4, 0x8613, false},
		{"an21", "0547:2131", 0x0547, 0x2131, false},
		{"uppercase hex", "04B4:8613", 0x04b4, 0x8613, false},
		{"missing separator", "04b48613", 0, 0, true},
		{"bad vendor", "zz:8613", 0, 0, true},
		{"bad product", "04b4:zz", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vid, pid, err := ParseDeviceID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDeviceID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if vid != tt.vid || pid != tt.pid {
				t.Errorf("ParseDeviceID(%q) = %04x:%04x, want %04x:%04x",
					tt.input, vid, pid, tt.vid, tt.pid)
			}
		})
	}
}

func TestParseDeviceAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		bus     uint8
		addr    uint8
		wantErr bool
	}{
		{"comma", "1,4", 1, 4, false},
		{"dot", "2.17", 2, 17, false},
		{"no separator", "14", 0, 0, true},
		{"out of range", "1,300", 0, 0, true},
		{"hex rejected", "0x1,4", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, addr, err := ParseDeviceAddr(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDeviceAddr(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if bus != tt.bus || addr != tt.addr {
				t.Errorf("ParseDeviceAddr(%q) = %d,%d, want %d,%d",
					tt.input, bus, addr, tt.bus, tt.addr)
			}
		})
	}
}

func TestSelectorMatches(t *testing.T) {
	info := DeviceInfo{
		BusNum:    1,
		DevNum:    4,
		VendorID:  0x04b4,
		ProductID: 0x8613,
	}

	tests := []struct {
		name string
		sel  Selector
		want bool
	}{
		{"empty matches all", Selector{}, true},
		{"id match", Selector{VendorID: 0x04b4, ProductID: 0x8613, HaveID: true}, true},
		{"id mismatch", Selector{VendorID: 0x04b4, ProductID: 0x6473, HaveID: true}, false},
		{"addr match", Selector{BusNum: 1, DevNum: 4, HaveAddr: true}, true},
		{"addr mismatch", Selector{BusNum: 1, DevNum: 5, HaveAddr: true}, false},
		{"both constraints", Selector{
			VendorID: 0x04b4, ProductID: 0x8613, HaveID: true,
			BusNum: 1, DevNum: 4, HaveAddr: true,
		}, true},
		{"id matches but addr does not", Selector{
			VendorID: 0x04b4, ProductID: 0x8613, HaveID: true,
			BusNum: 2, DevNum: 4, HaveAddr: true,
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Matches(info); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDevfsPath(t *testing.T) {
	tests := []struct {
		busNum uint8
		devNum uint8
		want   string
	}{
		{1, 4, "/dev/bus/usb/001/004"},
		{12, 120, "/dev/bus/usb/012/120"},
		{255, 255, "/dev/bus/usb/255/255"},
	}

	for _, tt := range tests {
		if got := formatDevfsPath(tt.busNum, tt.devNum); got != tt.want {
			t.Errorf("formatDevfsPath(%d, %d) = %q, want %q",
				tt.busNum, tt.devNum, got, tt.want)
		}
	}
}

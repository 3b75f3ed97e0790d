package imaging

import (
	"image"
	"testing"
)

func TestRegion_Validate(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	tests := []struct {
		name    string
		r       Region
		wantErr bool
	}{
		{"full", Region{0, 0, 100, 100}, false},
		{"inner", Region{10, 20, 30, 40}, false},
		{"single pixel", Region{5, 5, 6, 6}, false},
		{"x1 negative", Region{-1, 0, 50, 50}, true},
		{"y1 negative", Region{0, -1, 50, 50}, true},
		{"x2 too large", Region{0, 0, 101, 50}, true},
		{"y2 too large", Region{0, 0, 50, 101}, true},
		{"empty width", Region{10, 10, 10, 20}, true},
		{"inverted", Region{20, 20, 10, 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate(bounds)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v): err=%v, wantErr=%v", tt.r, err, tt.wantErr)
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("1, 2,30,40")
	if err != nil {
		t.Fatalf("ParseRegion failed: %v", err)
	}
	if r != (Region{1, 2, 30, 40}) {
		t.Errorf("got %+v", r)
	}
	if r.Width() != 29 || r.Height() != 38 {
		t.Errorf("size: got %dx%d, want 29x38", r.Width(), r.Height())
	}
	if r.String() != "1,2,30,40" {
		t.Errorf("String: got %s", r.String())
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := ParseRegion(bad); err == nil {
			t.Errorf("ParseRegion(%q) should fail", bad)
		}
	}
}

func TestQuadrantRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name string
		want Region
	}{
		{"top-left", Region{0, 0, 50, 40}},
		{"top-right", Region{50, 0, 100, 40}},
		{"bottom-left", Region{0, 40, 50, 80}},
		{"bottom-right", Region{50, 40, 100, 80}},
		{"top-half", Region{0, 0, 100, 40}},
		{"bottom-half", Region{0, 40, 100, 80}},
		{"left-half", Region{0, 0, 50, 80}},
		{"right-half", Region{50, 0, 100, 80}},
		{"center", Region{25, 20, 75, 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuadrantRegion(bounds, tt.name)
			if err != nil {
				t.Fatalf("QuadrantRegion failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQuadrantRegion_OffsetBounds(t *testing.T) {
	got, err := QuadrantRegion(image.Rect(10, 20, 30, 40), "top-left")
	if err != nil {
		t.Fatalf("QuadrantRegion failed: %v", err)
	}
	if got != (Region{10, 20, 20, 30}) {
		t.Errorf("got %+v", got)
	}
}

func TestQuadrantRegion_Errors(t *testing.T) {
	if _, err := QuadrantRegion(image.Rect(0, 0, 100, 100), "middle"); err == nil {
		t.Error("unknown name should fail")
	}
	if _, err := QuadrantRegion(image.Rect(0, 0, 1, 1), "top-left"); err == nil {
		t.Error("empty quadrant of a 1x1 image should fail")
	}
}

func TestFullRegion(t *testing.T) {
	b := image.Rect(3, 4, 13, 24)
	r := FullRegion(b)
	if r.Rect() != b {
		t.Errorf("got %v, want %v", r.Rect(), b)
	}
}

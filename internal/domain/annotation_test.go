package domain

import (
	"errors"
	"testing"
)

func TestValidateCommit(t *testing.T) {
	tests := []struct {
		name    string
		mark    Mark
		wantErr bool
	}{
		{name: "Text with content", mark: Text{Content: "Hi"}},
		{name: "Text without content", mark: Text{}, wantErr: true},
		{name: "Comment without content", mark: Comment{}, wantErr: true},
		{name: "Highlight with content", mark: Highlight{Content: "note", Color: "#FFFF00"}},
		{name: "Highlight without content", mark: Highlight{Color: "#FFFF00"}, wantErr: true},
		{name: "Underline without content", mark: Underline{Color: "#FF0000"}, wantErr: true},
		{name: "Signature captured", mark: Signature{ImageData: "data:image/png;base64,AAAA"}},
		{name: "Signature not captured", mark: Signature{}, wantErr: true},
		{name: "No mark", mark: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommit(Annotation{ID: "1", Mark: tt.mark})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCommit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var invalid *InvalidCommitError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected *InvalidCommitError, got %T", err)
				}
			}
			if CanCommit(Annotation{Mark: tt.mark}) == tt.wantErr {
				t.Fatalf("CanCommit disagrees with ValidateCommit")
			}
		})
	}
}

func TestSignatureLabel(t *testing.T) {
	if got := (Signature{}).Label(); got != SignatureLabel {
		t.Errorf("expected %q, got %q", SignatureLabel, got)
	}
}

func TestParseKind(t *testing.T) {
	for k := KindText; k <= KindSignature; k++ {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v", k.String(), got)
		}
	}

	if _, err := ParseKind(" Highlight "); err != nil {
		t.Errorf("expected case and space insensitive parse, got %v", err)
	}

	_, err := ParseKind("stamp")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected type validation error, got %v", err)
	}
}

func TestAnnotation_WithPosition(t *testing.T) {
	a := Annotation{ID: "1", Geometry: Rect{X: 1, Y: 2, Width: 30, Height: 40}, Mark: Text{Content: "x"}}
	moved := a.WithPosition(10, 20)

	if moved.Geometry != (Rect{X: 10, Y: 20, Width: 30, Height: 40}) {
		t.Errorf("unexpected geometry %+v", moved.Geometry)
	}
	if a.Geometry.X != 1 {
		t.Errorf("original annotation was modified")
	}
	if moved.ID != "1" {
		t.Errorf("id changed to %q", moved.ID)
	}
}

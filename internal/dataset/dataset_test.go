package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validCSV = `id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base,extra
img01,48.8566,2.3522,48.85,2.35,51.5,-0.12,x
img02,35.6762,139.6503,34.69,135.50,37.56,126.97,y
`

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(validCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(ds.Items))
	}

	it := ds.Items[1]
	if it.ID != "img02" {
		t.Errorf("ID = %q, want img02", it.ID)
	}
	if it.True.Lat != 35.6762 || it.True.Lon != 139.6503 {
		t.Errorf("True = %+v", it.True)
	}
	if it.Best.Lat != 34.69 || it.Baseline.Lon != 126.97 {
		t.Errorf("predictions = %+v / %+v", it.Best, it.Baseline)
	}
	if len(ds.Fingerprint) != 64 {
		t.Errorf("fingerprint = %q, want sha256 hex", ds.Fingerprint)
	}
}

func TestReadFingerprintStable(t *testing.T) {
	a, err := Read(strings.NewReader(validCSV))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Read(strings.NewReader(validCSV))
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Error("same input produced different fingerprints")
	}

	c, err := Read(strings.NewReader(strings.Replace(validCSV, "img01", "img00", 1)))
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint == c.Fingerprint {
		t.Error("different input produced the same fingerprint")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantCol  string
	}{
		{
			name:     "empty file",
			input:    "",
			wantLine: 1,
		},
		{
			name:     "missing column",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base\nx,1,2,3,4,5\n",
			wantLine: 1,
			wantCol:  ColPredLonBase,
		},
		{
			name:     "not a number",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\na,1,2,3,4,5,6\nb,1,abc,3,4,5,6\n",
			wantLine: 3,
			wantCol:  ColTrueLon,
		},
		{
			name:     "nan coordinate",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\na,NaN,2,3,4,5,6\n",
			wantLine: 2,
			wantCol:  ColTrueLat,
		},
		{
			name:     "latitude out of range",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\na,1,2,95,4,5,6\n",
			wantLine: 2,
			wantCol:  ColPredLat,
		},
		{
			name:     "short row",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\na,1,2,3\n",
			wantLine: 2,
			wantCol:  ColPredLon,
		},
		{
			name:     "empty id",
			input:    "id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\n,1,2,3,4,5,6\n",
			wantLine: 2,
			wantCol:  ColID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want *LoadError", err)
			}
			if le.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", le.Line, tt.wantLine, err)
			}
			if le.Column != tt.wantCol {
				t.Errorf("Column = %q, want %q (%v)", le.Column, tt.wantCol, err)
			}
		})
	}
}

func TestReadNoRows(t *testing.T) {
	_, err := Read(strings.NewReader("id,true_lat,true_lon,pred_lat,pred_lon,pred_lat_base,pred_lon_base\n"))
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestLoadSetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "select.csv")
	if err := os.WriteFile(path, []byte("id,true_lat\nx,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
	if le.Path != path {
		t.Errorf("Path = %q, want %q", le.Path, path)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("message %q does not mention the file", err.Error())
	}
}

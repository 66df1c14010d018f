package fragments

import "testing"

func TestProgressCallbackReport(t *testing.T) {
	var got []float64
	var gotInfo *ProgressInfo
	cb := ProgressCallback(func(p float64, info *ProgressInfo) {
		got = append(got, p)
		gotInfo = info
	})

	cb.Report(0.5, &ProgressInfo{Process: "geometry", State: "start"})
	if len(got) != 1 || got[0] != 0.5 {
		t.Errorf("Progress mismatch: got %v, want [0.5]", got)
	}
	if gotInfo == nil || gotInfo.Process != "geometry" {
		t.Errorf("Info mismatch: got %+v", gotInfo)
	}
}

func TestProgressCallbackReportNil(t *testing.T) {
	var cb ProgressCallback
	// A nil callback must be safe to report to.
	cb.Report(1, nil)
}

func TestWasmLocation(t *testing.T) {
	loc := WasmLocation{Absolute: true, Path: "/opt/web-ifc/"}
	if !loc.Absolute {
		t.Error("Absolute mismatch: got false, want true")
	}
	if loc.Path != "/opt/web-ifc/" {
		t.Errorf("Path mismatch: got %s, want /opt/web-ifc/", loc.Path)
	}
}

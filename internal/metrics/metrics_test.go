// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramCount extracts the sample count of one histogram series.
func histogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	m, ok := obs.(prometheus.Metric)
	if !ok {
		t.Fatal("observer is not a metric")
	}
	var out io_prometheus_client.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetHistogram().GetSampleCount()
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/clockin", "200"))
	RecordAPIRequest("POST", "/api/clockin", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/clockin", "200"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestRecordAPIRequest_Duration(t *testing.T) {
	obs := APIRequestDuration.WithLabelValues("GET", "/api/admin/export/{type}")
	before := histogramCount(t, obs)
	RecordAPIRequest("GET", "/api/admin/export/{type}", "200", 250*time.Millisecond)
	if got := histogramCount(t, obs); got != before+1 {
		t.Errorf("sample count = %d, want %d", got, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+2 {
		t.Errorf("active = %v, want %v", got, start+2)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

func TestSetEmergencyMode(t *testing.T) {
	SetEmergencyMode(true)
	if testutil.ToFloat64(EmergencyMode) != 1 {
		t.Error("gauge should be 1")
	}
	SetEmergencyMode(false)
	if testutil.ToFloat64(EmergencyMode) != 0 {
		t.Error("gauge should be 0")
	}
}

func TestRecordAttendance(t *testing.T) {
	c := AttendanceOperations.WithLabelValues("clockin", "already_clocked_in")
	before := testutil.ToFloat64(c)
	RecordAttendance("clockin", "already_clocked_in")
	if testutil.ToFloat64(c) != before+1 {
		t.Error("attendance counter did not move")
	}
}

// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"math"
	"testing"
	"time"
)

func TestKeyStatusKnown(t *testing.T) {
	for _, s := range []KeyStatus{StatusNew, StatusGood, StatusRevoked} {
		if !s.Known() {
			t.Errorf("status %q should be known", s)
		}
	}
	for _, s := range []KeyStatus{"", "stale", "GOOD"} {
		if s.Known() {
			t.Errorf("status %q should not be known", s)
		}
	}
}

func TestNodeScoreDefaults(t *testing.T) {
	// A freshly registered node has never reported: no heartbeat, failing
	// self-check, zero load. Only the idle-CPU term contributes.
	n := Node{Name: "fresh", IP: "10.0.0.1", Uptime: DefaultUptime}
	got := n.Score()
	if got != 25 {
		t.Errorf("default node score = %v, want 25", got)
	}
	if got < 0 {
		t.Errorf("score must never be negative, got %v", got)
	}
}

func TestNodeScoreHealthy(t *testing.T) {
	now := time.Now()
	n := Node{
		Name:      "relay-1",
		IP:        "10.0.0.2",
		Heartbeat: now.Add(-time.Minute).Unix(),
		SelfCheck: true,
		Uptime:    "3d 4h",
		UserCount: 2,
		CPU:       15,
	}
	// 60 (fresh heartbeat) + 40 (self-check) + 21.25 (idle cpu)
	// + 10 (users) + 6 (uptime) = 137.25
	got := n.ScoreAt(now)
	if math.Abs(got-137.25) > 1e-9 {
		t.Errorf("score = %v, want 137.25", got)
	}
	if got < HealthyScore {
		t.Errorf("node with fresh heartbeat and passing self-check must clear %d, got %v", HealthyScore, got)
	}
}

func TestNodeScoreHeartbeatWindows(t *testing.T) {
	now := time.Now()
	base := Node{Name: "n", IP: "10.0.0.3", Uptime: DefaultUptime, CPU: 100}

	fresh := base
	fresh.Heartbeat = now.Add(-4 * time.Minute).Unix()
	if got := fresh.ScoreAt(now); got != 60 {
		t.Errorf("fresh heartbeat score = %v, want 60", got)
	}

	aging := base
	aging.Heartbeat = now.Add(-30 * time.Minute).Unix()
	if got := aging.ScoreAt(now); got != 30 {
		t.Errorf("aging heartbeat score = %v, want 30", got)
	}

	dead := base
	dead.Heartbeat = now.Add(-2 * time.Hour).Unix()
	if got := dead.ScoreAt(now); got != 0 {
		t.Errorf("stale heartbeat score = %v, want 0", got)
	}
}

func TestNodeScoreCaps(t *testing.T) {
	now := time.Now()
	n := Node{
		Name:      "busy",
		IP:        "10.0.0.4",
		Uptime:    "365d 0h",
		UserCount: 1000,
		CPU:       100,
	}
	// Both the user and uptime terms saturate at their caps.
	if got := n.ScoreAt(now); got != 45 {
		t.Errorf("capped score = %v, want 45 (25 users + 20 uptime)", got)
	}
}

func TestUptimeDays(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0d 0h", 0},
		{"12d 7h", 12},
		{"3d", 3},
		{" 5 d 1h", 5},
		{"", 0},
		{"7h", 0},
		{"-2d 1h", 0},
		{"xd 1h", 0},
	}
	for _, c := range cases {
		if got := UptimeDays(c.in); got != c.want {
			t.Errorf("UptimeDays(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDepositArithmetic(t *testing.T) {
	d := Deposit{Amount: 2000, VATRate: 25.5, Fees: 20}

	if got := d.VATAmount(); math.Abs(got-510) > 1e-9 {
		t.Errorf("VATAmount = %v, want 510", got)
	}
	// income = (amount - fees) - vat = 1980 - 510
	if got := d.Income(); math.Abs(got-1470) > 1e-9 {
		t.Errorf("Income = %v, want 1470", got)
	}
}

func TestDepositNoVATNoFees(t *testing.T) {
	d := Deposit{Amount: 500}
	if got := d.VATAmount(); got != 0 {
		t.Errorf("VATAmount = %v, want 0", got)
	}
	if got := d.Income(); got != 500 {
		t.Errorf("Income = %v, want 500", got)
	}
}

func TestNodeString(t *testing.T) {
	n := Node{Name: "relay-1", IP: "192.0.2.7"}
	if got := n.String(); got != "relay-1 (192.0.2.7)" {
		t.Errorf("String() = %q", got)
	}
}

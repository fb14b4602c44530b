// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the core entities of the Vidar service: relay nodes,
// API keys, invite keys, user accounts and deposits. The types here are plain
// values; persistence lives in internal/db and the operations that enforce
// the business rules live in internal/core.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyStatus is the lifecycle state of an API key. Only StatusGood
// authenticates; keys never expire on their own.
type KeyStatus string

const (
	// StatusNew marks a freshly issued key that has not been activated yet.
	StatusNew KeyStatus = "new"
	// StatusGood marks an active key that passes authentication.
	StatusGood KeyStatus = "good"
	// StatusRevoked marks a key that must never authenticate again.
	StatusRevoked KeyStatus = "revoked"
)

// Known reports whether s is one of the defined key states.
func (s KeyStatus) Known() bool {
	switch s {
	case StatusNew, StatusGood, StatusRevoked:
		return true
	}
	return false
}

// APIKey is a bearer credential bound to an owner name. The owner is a free
// form identifier (a node name or a username); it is not a foreign key.
type APIKey struct {
	Key    string
	Name   string
	Status KeyStatus
}

// InviteKey is a single-use registration token. Valid is derived state: it is
// true only while the key exists in storage and has not been consumed.
// Constructing a view of an unknown token is not an error; Valid is simply
// false and any attempt to use it fails.
type InviteKey struct {
	Key   string
	Valid bool
}

// Node is a relay endpoint. The metric fields are reported periodically by
// the node itself; Score is derived from them on every read and never stored.
type Node struct {
	Name       string
	IP         string
	Heartbeat  int64 // unix timestamp of the last report, 0 = never
	SelfCheck  bool
	Uptime     string // "<days>d <hours>h"
	UserCount  int
	Throughput int64
	CPU        float64 // load percentage, 0..100
}

// DefaultUptime is the uptime string a node starts out with.
const DefaultUptime = "0d 0h"

// String returns the name (ip) representation.
func (n Node) String() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.IP)
}

// HealthyScore is the score at or above which routing considers a node
// healthy enough to receive traffic.
const HealthyScore = 100

// Scoring weights. Each term is non-negative and grows in the healthier
// direction, so the total is monotone and never below zero.
const (
	heartbeatFreshWindow = 5 * time.Minute
	heartbeatStaleWindow = time.Hour

	scoreHeartbeatFresh = 60 // reported within the fresh window
	scoreHeartbeatAging = 30 // reported within the stale window
	scoreSelfCheck      = 40 // internal health probe passed

	scoreCPUDivisor = 4  // idle CPU contributes (100-cpu)/4, at most 25
	scorePerUser    = 5  // per connected user
	scoreUserCap    = 25
	scorePerDay     = 2 // per day of uptime
	scoreUptimeCap  = 20
)

// Score returns the node's fitness score as of now.
func (n *Node) Score() float64 { return n.ScoreAt(time.Now()) }

// ScoreAt computes the fitness score from the node's current fields relative
// to the given clock. A node that has never reported (all defaults) scores
// 25 from the idle-CPU term alone; a node with a fresh heartbeat and a
// passing self-check clears HealthyScore before the smaller terms are added.
func (n *Node) ScoreAt(now time.Time) float64 {
	var score float64

	if n.Heartbeat > 0 {
		age := now.Sub(time.Unix(n.Heartbeat, 0))
		switch {
		case age <= heartbeatFreshWindow:
			score += scoreHeartbeatFresh
		case age <= heartbeatStaleWindow:
			score += scoreHeartbeatAging
		}
	}

	if n.SelfCheck {
		score += scoreSelfCheck
	}

	if n.CPU >= 0 && n.CPU <= 100 {
		score += (100 - n.CPU) / scoreCPUDivisor
	}

	users := float64(n.UserCount) * scorePerUser
	if users > scoreUserCap {
		users = scoreUserCap
	}
	if users > 0 {
		score += users
	}

	days := float64(UptimeDays(n.Uptime)) * scorePerDay
	if days > scoreUptimeCap {
		days = scoreUptimeCap
	}
	score += days

	return score
}

// UptimeDays parses the leading day count out of an uptime string like
// "12d 7h". Malformed input counts as zero days.
func UptimeDays(uptime string) int {
	dayPart, _, found := strings.Cut(uptime, "d")
	if !found {
		return 0
	}
	days, err := strconv.Atoi(strings.TrimSpace(dayPart))
	if err != nil || days < 0 {
		return 0
	}
	return days
}

// User is a service account. CreditISK is the prepaid balance in whole
// kronur; SubActive tracks whether a subscription is currently paid for.
type User struct {
	Username       string
	HashedPassword string
	Email          string
	DownloadLeft   int64
	CreditISK      int64
	SubActive      bool
}

// Deposit is an immutable payment record. VATAmount and Income are derived
// from the stored fields and never set independently; the user's balance is
// credited with the gross Amount, not the net Income.
type Deposit struct {
	DepositID int64
	Invoice   string
	Date      time.Time
	Username  string
	Amount    int64
	Method    string
	VATRate   float64 // VAT ("vsk") percentage applied to the gross amount
	Fees      int64   // flat processing fee
}

// VATAmount returns the VAT portion of the gross amount.
func (d *Deposit) VATAmount() float64 {
	return float64(d.Amount) * d.VATRate / 100
}

// Income returns the net accounting figure after fees and VAT. It is a
// reporting value only; the gross amount is what lands on the user's balance.
func (d *Deposit) Income() float64 {
	return float64(d.Amount-d.Fees) - d.VATAmount()
}

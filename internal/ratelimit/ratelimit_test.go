package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestAdmit_QuotaWithinWindow(t *testing.T) {
	l := New(3, time.Second)

	for i := 0; i < 3; i++ {
		if !l.Admit("u:list", at(0)) {
			t.Fatalf("admission %d rejected, want accepted", i+1)
		}
	}
	if l.Admit("u:list", at(500)) {
		t.Error("4th admission at t=500ms accepted, want rejected")
	}
	if !l.Admit("u:list", at(1001)) {
		t.Error("admission at t=1001ms rejected, want accepted after rollover")
	}
}

func TestAdmit_RejectionNotRecorded(t *testing.T) {
	l := New(1, time.Second)

	if !l.Admit("k:op", at(0)) {
		t.Fatal("first admission rejected")
	}
	// Hammering while over quota must not extend the window.
	for ms := 100; ms < 1000; ms += 100 {
		if l.Admit("k:op", at(ms)) {
			t.Fatalf("admission at t=%dms accepted, want rejected", ms)
		}
	}
	if !l.Admit("k:op", at(1001)) {
		t.Error("admission after window rejected; rejections extended the ledger")
	}
}

func TestAdmit_NoBoundaryBurstDoubling(t *testing.T) {
	l := New(2, time.Second)

	if !l.Admit("k:op", at(900)) || !l.Admit("k:op", at(950)) {
		t.Fatal("setup admissions rejected")
	}
	// A fixed-bucket counter aligned on whole seconds would admit
	// two more here; a sliding window must not.
	if l.Admit("k:op", at(1050)) {
		t.Error("admission at t=1050ms accepted, want rejected")
	}
	if !l.Admit("k:op", at(1951)) {
		t.Error("admission at t=1951ms rejected, want accepted")
	}
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Second)

	if !l.Admit("a:op", at(0)) {
		t.Fatal("first key rejected")
	}
	if !l.Admit("b:op", at(0)) {
		t.Error("second key rejected, want independent ledger")
	}
	if l.Admit("a:op", at(1)) {
		t.Error("first key over quota, want rejected")
	}
}

func TestAdmit_ZeroQuotaRejectsEverything(t *testing.T) {
	l := New(0, time.Second)
	if l.Admit("k:op", at(0)) {
		t.Error("quota 0 admitted a call")
	}
}

func TestSweep_DropsExpiredKeys(t *testing.T) {
	l := New(5, time.Second)

	for i := 0; i < 10; i++ {
		l.Admit(fmt.Sprintf("k%d:op", i), at(0))
	}
	if got := l.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}

	// Any admission after the window expires every idle ledger.
	l.Admit("fresh:op", at(2000))
	if got := l.Len(); got != 1 {
		t.Errorf("Len() = %d after sweep, want 1", got)
	}
}

func TestAdmit_ConcurrentSharedKey(t *testing.T) {
	const quota = 50
	l := New(quota, time.Minute)

	var wg sync.WaitGroup
	results := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Admit("shared:op", time.Now())
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != quota {
		t.Errorf("admitted %d concurrent calls, want exactly %d", admitted, quota)
	}
}

func TestKey(t *testing.T) {
	if got := Key("dashboard", "summary"); got != "dashboard:summary" {
		t.Errorf("Key() = %q, want dashboard:summary", got)
	}
}

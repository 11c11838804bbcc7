package service_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/service"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

func TestSchedulerFiresAtInstant(t *testing.T) {
	fired := make(chan domain.DomainName, 1)
	s := service.NewRenewalScheduler(func(name domain.DomainName) {
		fired <- name
	})
	defer s.Stop()

	s.Schedule("shop.example.com", time.Now().Add(20*time.Millisecond))

	select {
	case name := <-fired:
		assert.Equal(t, domain.DomainName("shop.example.com"), name)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	assert.Equal(t, 0, s.Len(), "fired timers are disarmed")
}

func TestSchedulerPastInstantFiresImmediately(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := service.NewRenewalScheduler(func(domain.DomainName) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Schedule("shop.example.com", time.Now().Add(-time.Hour))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past instant must fire immediately")
	}
}

func TestSchedulerLatestScheduleWins(t *testing.T) {
	var fires atomic.Int64
	fired := make(chan struct{}, 4)
	s := service.NewRenewalScheduler(func(domain.DomainName) {
		fires.Add(1)
		fired <- struct{}{}
	})
	defer s.Stop()

	// Replacing a distant timer with a near one fires once, soon.
	s.Schedule("shop.example.com", time.Now().Add(time.Hour))
	s.Schedule("shop.example.com", time.Now().Add(20*time.Millisecond))
	require.Equal(t, 1, s.Len(), "rescheduling must not stack timers")

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement timer never fired")
	}
	assert.Equal(t, int64(1), fires.Load())

	// Replacing a near timer with a distant one must not fire soon.
	s.Schedule("shop.example.com", time.Now().Add(20*time.Millisecond))
	s.Schedule("shop.example.com", time.Now().Add(time.Hour))

	select {
	case <-fired:
		t.Fatal("superseded timer fired anyway")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, int64(1), fires.Load())
}

func TestSchedulerCancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := service.NewRenewalScheduler(func(domain.DomainName) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Schedule("shop.example.com", time.Now().Add(50*time.Millisecond))
	s.Cancel("shop.example.com")
	assert.Equal(t, 0, s.Len())

	select {
	case <-fired:
		t.Fatal("canceled timer fired")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSchedulerStop(t *testing.T) {
	fired := make(chan struct{}, 2)
	s := service.NewRenewalScheduler(func(domain.DomainName) {
		fired <- struct{}{}
	})

	s.Schedule("a.example.com", time.Now().Add(50*time.Millisecond))
	s.Schedule("b.example.com", time.Now().Add(50*time.Millisecond))
	s.Stop()
	assert.Equal(t, 0, s.Len())

	s.Schedule("c.example.com", time.Now().Add(10*time.Millisecond))
	assert.Equal(t, 0, s.Len(), "a stopped scheduler accepts no work")

	select {
	case <-fired:
		t.Fatal("timer fired after stop")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSchedulerRecoversFiringPanic(t *testing.T) {
	fired := make(chan struct{}, 2)
	var first atomic.Bool
	first.Store(true)
	s := service.NewRenewalScheduler(func(domain.DomainName) {
		if first.CompareAndSwap(true, false) {
			panic("renewal blew up")
		}
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Schedule("shop.example.com", time.Now().Add(10*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	// The scheduler survives and keeps firing.
	s.Schedule("shop.example.com", time.Now().Add(10*time.Millisecond))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped working after a panicking fire")
	}
}

// Package bdd drives the Gherkin scenarios in features/dispatcher.feature
// against the real evdispatch package, using cucumber/godog.
package bdd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/evdispatch"
	"github.com/GoCodeAlone/evdispatch/internal/pool"
)

type dispatcherSteps struct {
	disp        *evdispatch.Dispatcher
	alloc       *pool.CountingAllocator
	audit       []string
	events      map[string]*evdispatch.Event
	cbCache     map[string]evdispatch.EventCallback
	createErr   error
	outstBefore int
	outstAfter  int
	pendingRB   evdispatch.ResultCallback
}

func (s *dispatcherSteps) reset() {
	s.disp = nil
	s.alloc = nil
	s.audit = nil
	s.events = make(map[string]*evdispatch.Event)
	s.cbCache = make(map[string]evdispatch.EventCallback)
	s.createErr = nil
	s.outstBefore = 0
	s.outstAfter = 0
}

func (s *dispatcherSteps) log(format string, args ...any) {
	s.audit = append(s.audit, fmt.Sprintf(format, args...))
}

func (s *dispatcherSteps) aDispatcherForSourceWithEvents(source, e1, e2 string) error {
	s.alloc = pool.NewCountingAllocator()
	d, err := evdispatch.NewDispatcher(source, evdispatch.WithAllocator(s.alloc))
	if err != nil {
		return err
	}
	s.disp = d
	for _, name := range []string{e1, e2} {
		evt, err := d.CreateEvent(name)
		if err != nil {
			return err
		}
		s.events[name] = evt
	}
	return nil
}

func (s *dispatcherSteps) aDispatcherForSourceWithNoEvents(source string) error {
	s.alloc = pool.NewCountingAllocator()
	d, err := evdispatch.NewDispatcher(source, evdispatch.WithAllocator(s.alloc))
	if err != nil {
		return err
	}
	s.disp = d
	return nil
}

func (s *dispatcherSteps) cbNamed(name string) evdispatch.EventCallback {
	switch name {
	case "cb1":
		return func(ed *evdispatch.EventData, arg any) { s.log("cb1:%s", ed.Name) }
	case "cb_handled":
		return func(ed *evdispatch.EventData, arg any) {
			ed.Handled = true
			s.log("cb_handled:%s", ed.Name)
		}
	case "nestA":
		evt2 := s.events["mockEvent2"]
		return func(ed *evdispatch.EventData, arg any) {
			_ = evt2.Trigger(nil, s.pendingRB, nil)
			s.log("nestA:%s", ed.Name)
		}
	case "nestB":
		return func(ed *evdispatch.EventData, arg any) { s.log("nestB:%s", ed.Name) }
	case "nestC":
		return func(ed *evdispatch.EventData, arg any) {
			ed.Handled = true
			s.log("nestC:%s", ed.Name)
		}
	case "uc1":
		evt1 := s.events["mockEvent1"]
		var self evdispatch.EventCallback
		self = func(ed *evdispatch.EventData, arg any) {
			evt1.Unbind(self)
			s.log("uc1:%s", ed.Name)
		}
		return self
	case "bind_cb1":
		evt1 := s.events["mockEvent1"]
		cb1 := s.cbInstance("cb1")
		return func(ed *evdispatch.EventData, arg any) {
			evt1.Bind(cb1, nil)
			s.log("bind_cb1:%s", ed.Name)
		}
	case "destroying_cb":
		return func(ed *evdispatch.EventData, arg any) {
			s.outstBefore = s.alloc.Outstanding()
			s.disp.Destroy()
			s.outstAfter = s.alloc.Outstanding()
		}
	}
	panic("unknown callback name: " + name)
}

// cbInstance caches callbacks so the same name always yields the same
// function identity, matching the dispatcher's callback-pointer semantics.
func (s *dispatcherSteps) cbInstance(name string) evdispatch.EventCallback {
	if s.cbCache == nil {
		s.cbCache = make(map[string]evdispatch.EventCallback)
	}
	if cb, ok := s.cbCache[name]; ok {
		return cb
	}
	cb := s.cbNamed(name)
	s.cbCache[name] = cb
	return cb
}

func (s *dispatcherSteps) isBoundTo(cbName, evtName string) error {
	evt, ok := s.events[evtName]
	if !ok {
		return fmt.Errorf("no such event: %s", evtName)
	}
	evt.Bind(s.cbInstance(cbName), nil)
	return nil
}

func (s *dispatcherSteps) eventIsTriggeredPlain(evtName string) error {
	evt, ok := s.events[evtName]
	if !ok {
		return fmt.Errorf("no such event: %s", evtName)
	}
	return evt.Trigger(nil, nil, nil)
}

func (s *dispatcherSteps) eventIsTriggeredWithResult(evtName, resultName string) error {
	evt := s.events[evtName]
	return evt.Trigger(nil, func(ed *evdispatch.EventData, handled bool, arg any) {
		s.log("%s:%s == %v", resultName, ed.Name, handled)
	}, nil)
}

func (s *dispatcherSteps) auditLogIsExactly(expected *godog.DocString) error {
	want := strings.Split(strings.TrimSpace(expected.Content), "\n")
	if len(strings.TrimSpace(expected.Content)) == 0 {
		want = nil
	}
	got := s.audit
	if len(want) != len(got) {
		return fmt.Errorf("audit log mismatch: want %v, got %v", want, got)
	}
	for i := range want {
		if strings.TrimSpace(want[i]) != got[i] {
			return fmt.Errorf("audit log mismatch at %d: want %q, got %q", i, want[i], got[i])
		}
	}
	return nil
}

func (s *dispatcherSteps) allocatorCountsEqual() error {
	if s.outstBefore != s.outstAfter {
		return fmt.Errorf("outstanding changed across destroy: before=%d after=%d", s.outstBefore, s.outstAfter)
	}
	return nil
}

func (s *dispatcherSteps) allocatorOutstandingIsZero() error {
	if got := s.alloc.Outstanding(); got != 0 {
		return fmt.Errorf("expected outstanding 0, got %d", got)
	}
	return nil
}

func (s *dispatcherSteps) eventHasBeenCreated(name string) error {
	evt, err := s.disp.CreateEvent(name)
	if err != nil {
		return err
	}
	s.events[name] = evt
	return nil
}

func (s *dispatcherSteps) eventIsCreated(name string) error {
	_, err := s.disp.CreateEvent(name)
	s.createErr = err
	return nil
}

func (s *dispatcherSteps) eventCreationFailsWith(code string) error {
	if s.createErr == nil {
		return fmt.Errorf("expected creation to fail with %s, got success", code)
	}
	if code == "InvalidState" && !errors.Is(s.createErr, evdispatch.ErrInvalidState) {
		return fmt.Errorf("expected ErrInvalidState, got %v", s.createErr)
	}
	return nil
}

func (s *dispatcherSteps) lookupReturnsEventNamed(lookup, wantName string) error {
	evt := s.disp.GetEvent(lookup)
	if evt == nil {
		return fmt.Errorf("lookup of %q returned nil", lookup)
	}
	if evt.GetName() != wantName {
		return fmt.Errorf("lookup of %q returned event named %q, want %q", lookup, evt.GetName(), wantName)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	s := &dispatcherSteps{}

	ctx.Before(func(goCtx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.reset()
		return goCtx, nil
	})

	ctx.Step(`^a dispatcher for source "([^"]*)" with events "([^"]*)" and "([^"]*)"$`, s.aDispatcherForSourceWithEvents)
	ctx.Step(`^a dispatcher for source "([^"]*)" with no events$`, s.aDispatcherForSourceWithNoEvents)

	ctx.Step(`^"([^"]*)" is bound to "([^"]*)"$`, s.isBoundTo)
	ctx.Step(`^"([^"]*)" and "([^"]*)" are bound to "([^"]*)" in that order$`, func(a, b, evt string) error {
		if err := s.isBoundTo(a, evt); err != nil {
			return err
		}
		return s.isBoundTo(b, evt)
	})

	ctx.Step(`^"([^"]*)" is triggered with no payload and no result callback$`, s.eventIsTriggeredPlain)
	ctx.Step(`^"([^"]*)" is triggered again with no payload and no result callback$`, s.eventIsTriggeredPlain)
	ctx.Step(`^"([^"]*)" is triggered with result callback "([^"]*)"$`, s.eventIsTriggeredWithResult)
	ctx.Step(`^"([^"]*)" is triggered with result callback "([^"]*)" and nested result callback "([^"]*)" on "([^"]*)"$`,
		func(evtName, resultName, nestedName, nestedEvt string) error {
			evt := s.events[evtName]
			s.pendingRB = func(ed *evdispatch.EventData, handled bool, arg any) {
				s.log("%s:%s == %v", nestedName, ed.Name, handled)
			}
			return evt.Trigger(nil, func(ed *evdispatch.EventData, handled bool, arg any) {
				s.log("%s:%s == %v", resultName, ed.Name, handled)
			}, nil)
		})

	ctx.Step(`^the audit log is exactly:$`, s.auditLogIsExactly)
	ctx.Step(`^"([^"]*)"'s binding list contains only "([^"]*)"$`, func(evtName, cbName string) error {
		s.audit = nil
		evt := s.events[evtName]
		if err := evt.Trigger(nil, nil, nil); err != nil {
			return err
		}
		want := fmt.Sprintf("%s:%s", cbName, evtName)
		if len(s.audit) != 1 || s.audit[0] != want {
			return fmt.Errorf("binding list mismatch: want [%s], got %v", want, s.audit)
		}
		return nil
	})

	ctx.Step(`^event "([^"]*)" has been created$`, s.eventHasBeenCreated)
	ctx.Step(`^event "([^"]*)" is created$`, s.eventIsCreated)
	ctx.Step(`^event creation fails with InvalidState$`, func() error { return s.eventCreationFailsWith("InvalidState") })
	ctx.Step(`^looking up "([^"]*)" returns the event named "([^"]*)"$`, s.lookupReturnsEventNamed)

	ctx.Step(`^the allocator's outstanding count before and after the destroy call inside the callback are equal$`, s.allocatorCountsEqual)
	ctx.Step(`^the allocator's outstanding count is zero once the trigger returns$`, s.allocatorOutstandingIsZero)
}

func TestDispatcherBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/dispatcher.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

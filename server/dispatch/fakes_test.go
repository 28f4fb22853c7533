package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/work"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testDeviceID = "MEDIBOX001"
	testToken    = "tok123"
	testPhone    = "+94770000000"
)

var errStoreDown = errors.New("connection refused")

// fakeStore is an in-memory Store with the realtime database's behaviour (no owner index)
type fakeStore struct {
	mu        sync.Mutex
	devices   map[string]*models.Device
	users     []models.User
	deviceErr error
	usersErr  error
	resetErr  error
	resets    int
	userReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{devices: map[string]*models.Device{}}
}

func (s *fakeStore) addDevice(device models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.ID] = &device
}

func (s *fakeStore) addUser(id, phone string, devices ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, models.User{ID: id, PhoneNumber: phone, Devices: devices})
}

func (s *fakeStore) raise(deviceID string, trigger models.Trigger, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID].Set(trigger, at, "")
}

func (s *fakeStore) flag(deviceID string, trigger models.Trigger) (bool, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[deviceID].Flag(trigger)
}

func (s *fakeStore) Device(_ context.Context, id string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceErr != nil {
		return nil, s.deviceErr
	}

	device, ok := s.devices[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	copied := *device
	return &copied, nil
}

func (s *fakeStore) Devices(_ context.Context) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceErr != nil {
		return nil, s.deviceErr
	}

	devices := []models.Device{}
	for _, device := range s.devices {
		devices = append(devices, *device)
	}
	return devices, nil
}

func (s *fakeStore) Users(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userReads++
	if s.usersErr != nil {
		return nil, s.usersErr
	}

	return append([]models.User{}, s.users...), nil
}

func (s *fakeStore) ResetTrigger(_ context.Context, deviceID string, trigger models.Trigger, observedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets++
	if s.resetErr != nil {
		return false, s.resetErr
	}

	device, ok := s.devices[deviceID]
	if !ok {
		return false, nil
	}

	set, timestamp := device.Flag(trigger)
	if !set || timestamp != observedAt {
		return false, nil
	}

	switch trigger {
	case models.DOSE_TAKEN_TRIGGER:
		device.NotificationTrigger.Triggered = false
	case models.DOSE_MISSED_TRIGGER:
		device.MissedDose.Missed = false
	}
	return true, nil
}

// indexedStore adds an owner index, like the sqlite store
type indexedStore struct {
	*fakeStore
	owners map[string]models.User
}

func (s *indexedStore) Owner(_ context.Context, deviceID string) (*models.User, error) {
	owner, ok := s.owners[deviceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &owner, nil
}

type pushCall struct {
	token, title, body string
	data               map[string]string
}

type fakePush struct {
	mu     sync.Mutex
	calls  []pushCall
	err    error
	onSend func()
}

func (p *fakePush) Send(_ context.Context, token, title, body string, data map[string]string) (string, error) {
	if p.onSend != nil {
		p.onSend()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, pushCall{token: token, title: title, body: body, data: data})
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("projects/medibox/messages/%d", len(p.calls)), nil
}

func (p *fakePush) sent() []pushCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushCall{}, p.calls...)
}

type smsCall struct {
	phone, title, body string
}

type fakeSMS struct {
	mu    sync.Mutex
	calls []smsCall
	err   error
}

func (s *fakeSMS) Send(_ context.Context, phone, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, smsCall{phone: phone, title: title, body: body})
	return s.err
}

func (s *fakeSMS) sent() []smsCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]smsCall{}, s.calls...)
}

// fakeRunner records jobs instead of running them, tests call the handlers directly
type fakeRunner struct {
	handlers map[string]work.Handler
	jobs     []work.JobParams
	every    map[string]string
	cron     map[string]string
	err      error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		handlers: map[string]work.Handler{},
		every:    map[string]string{},
		cron:     map[string]string{},
	}
}

func (r *fakeRunner) Register(name string, handler work.Handler) error {
	r.handlers[name] = handler
	return nil
}

func (r *fakeRunner) Perform(job work.JobParams) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *fakeRunner) PerformEvery(interval string, job work.JobParams) error {
	r.every[job.Name] = interval
	return nil
}

func (r *fakeRunner) PeriodicallyPerform(cronExpression string, job work.JobParams) error {
	r.cron[job.Name] = cronExpression
	return nil
}

// runQueued runs & clears the queued jobs
func (r *fakeRunner) runQueued(ctx context.Context) error {
	jobs := r.jobs
	r.jobs = nil

	for _, job := range jobs {
		if err := r.handlers[job.Handler](ctx, job.Args); err != nil {
			return err
		}
	}
	return nil
}

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func triggeredDevice(id, token string, at time.Time) models.Device {
	device := models.Device{ID: id, GuardianFcmToken: token}
	device.Set(models.DOSE_TAKEN_TRIGGER, at, "")
	return device
}

// Package controller wires the keepout interlock into the G-code motion
// controller and speaks the line protocol on the console port.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"atcguard/core"
	"atcguard/standalone"
	"atcguard/standalone/activation"
	"atcguard/standalone/config"
	"atcguard/standalone/gcode"
	"atcguard/standalone/keepout"
	"atcguard/standalone/kinematics"
	"atcguard/standalone/limits"
	"atcguard/standalone/planner"
	"atcguard/standalone/settings"
)

// Version is reported by $I
const Version = "0.4.0"

var (
	errNotInitialized = errors.New("manager not initialized")
	errUnknownCommand = errors.New("unsupported $ command")
)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithInputDriver sets the driver the sensor inputs are read through.
// Without it the globally registered driver is used.
func WithInputDriver(d core.InputDriver) Option {
	return func(m *Manager) { m.driver = d }
}

// WithRackSensor replaces the configured rack presence input
func WithRackSensor(s core.Sensor) Option {
	return func(m *Manager) { m.rackOverride = s }
}

// WithSettingsBackend sets where keepout settings persist. The default is a
// file at the configured settings path.
func WithSettingsBackend(b settings.Backend) Option {
	return func(m *Manager) { m.backend = b }
}

// WithScheduler sets the timer queue. The default is core.DefaultScheduler().
func WithScheduler(s *core.Scheduler) Option {
	return func(m *Manager) { m.sched = s }
}

// WithReporter receives every enforcement event in addition to the console
func WithReporter(r keepout.Reporter) Option {
	return func(m *Manager) { m.reporters = append(m.reporters, r) }
}

// WithObserver receives every effective keepout transition
func WithObserver(fn keepout.ChangeFunc) Option {
	return func(m *Manager) { m.observers = append(m.observers, fn) }
}

// Manager coordinates all standalone mode components
type Manager struct {
	mu          sync.Mutex
	config      *standalone.MachineConfig
	parser      *gcode.Parser
	interpreter *gcode.Interpreter
	planner     *planner.Planner
	kinematics  kinematics.Kinematics
	sched       *core.Scheduler

	// Keepout
	state      *keepout.State
	enforcer   *keepout.Enforcer
	checks     limits.CheckChain
	clips      limits.ClipChain
	store      *settings.Store
	backend    settings.Backend
	poller     *activation.RackPoller
	toolChange *activation.ToolChange
	command    *activation.Command

	driver       core.InputDriver
	rackOverride core.Sensor
	reporters    []keepout.Reporter
	observers    []keepout.ChangeFunc

	// Serial interface
	outMu        sync.Mutex
	outputBuffer []byte

	// Status
	initialized bool
	running     bool
	logger      *slog.Logger
}

// NewManager creates a new standalone mode manager from YAML config
func NewManager(configData []byte, opts ...Option) (*Manager, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg, opts...)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *standalone.MachineConfig, opts ...Option) (*Manager, error) {
	mgr := &Manager{
		config:       cfg,
		parser:       gcode.NewParser(),
		state:        keepout.NewState(),
		outputBuffer: make([]byte, 0, 256),
	}
	for _, opt := range opts {
		opt(mgr)
	}

	if mgr.logger == nil {
		mgr.logger = slog.New(slog.DiscardHandler)
	}
	if mgr.sched == nil {
		mgr.sched = core.DefaultScheduler()
	}
	if mgr.driver == nil {
		mgr.driver = core.GetGPIODriver()
	}
	if mgr.backend == nil {
		mgr.backend = settings.FileBackend{Path: cfg.SettingsPath}
	}

	return mgr, nil
}

// Initialize sets up all components, loads the keepout settings and
// starts with keepout enabled from startup
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return errors.New("already initialized")
	}

	// Create kinematics based on config
	var kin kinematics.Kinematics
	var err error

	switch m.config.Kinematics {
	case "cartesian":
		kin, err = kinematics.NewCartesian(m.config)
	default:
		return errors.New("unsupported kinematics: " + m.config.Kinematics)
	}
	if err != nil {
		return err
	}
	m.kinematics = kin

	// Jogs: keepout veto in front of the soft limits.
	// Moves: soft-limit clamp first, so keepout clips the target that will
	// actually be run.
	m.enforcer = keepout.NewEnforcer(m.state, keepout.ReporterFunc(m.report), m.logger)
	m.checks.Push(kin)
	m.checks.Push(m.enforcer)
	m.clips.Push(m.enforcer)
	m.clips.Push(kin)

	m.store = settings.NewStore(m.backend, m.logger)
	s, err := m.store.Load()
	if err != nil {
		return err
	}
	m.applySettings(s)
	for _, fn := range m.observers {
		m.state.OnChange(fn)
	}
	m.state.SetActive(true, keepout.SourceStartup)

	sensors := m.sensors()

	m.planner = planner.NewPlanner(m.config, kin, &m.clips, m.sched, m.logger)
	m.interpreter = gcode.NewInterpreter(m.config, m.planner, &m.checks, m.logger)

	m.command = activation.NewCommand(m.state, m.logger)
	m.interpreter.HandleMCode(activation.MCode, m.command.Execute)

	m.toolChange = activation.NewToolChange(m.state, sensors.Rack, m.logger)
	m.interpreter.ObserveTools(m.toolChange)

	m.poller = activation.NewRackPoller(m.state, sensors, m.planner.Position, m.config.PollIntervalMS, m.logger)

	m.initialized = true
	return nil
}

func (m *Manager) sensors() activation.Sensors {
	cfg := m.config.Sensors
	s := activation.Sensors{
		Rack:       m.input("rack_presence", cfg.RackPresence),
		Drawbar:    m.input("drawbar", cfg.Drawbar),
		ToolLength: m.input("tool_length", cfg.ToolLength),
		Pressure:   m.input("pressure", cfg.Pressure),
	}
	if m.rackOverride != nil {
		s.Rack = m.rackOverride
	}
	return s
}

func (m *Manager) input(name string, cfg standalone.SensorConfig) core.Sensor {
	in, err := core.NewDigitalInput(m.driver, core.GPIOPin(cfg.Pin), cfg.ActiveLow)
	if err != nil {
		m.logger.Warn("sensor input unavailable", "sensor", name, "pin", cfg.Pin, "err", err)
		return nil
	}
	return in
}

func (m *Manager) applySettings(s settings.Settings) {
	m.state.SetBounds(s.Rect())
	m.state.SetFlags(s.Flags)
	m.logger.Info("keepout settings applied",
		"bounds", s.Rect().String(),
		"plugin_enabled", s.Flags.PluginEnabled,
		"monitor_rack_presence", s.Flags.MonitorRackPresence,
		"monitor_tc_macro", s.Flags.MonitorToolChange,
	)
}

// ReloadSettings re-reads persisted settings and applies them. The runtime
// enable flag and its source are left alone. A bad file is rejected and the
// settings in effect are kept.
func (m *Manager) ReloadSettings() error {
	if m.store == nil {
		return errNotInitialized
	}
	s, err := m.store.Reload()
	if err != nil {
		return err
	}
	m.applySettings(s)
	return nil
}

// report turns an enforcement event into an operator message
func (m *Manager) report(ev keepout.Event) {
	m.SendResponse("[MSG:" + ev.Message + "]\n")
	for _, r := range m.reporters {
		r.Report(ev)
	}
}

// Start begins standalone operation. The first sensor poll runs one
// second after now.
func (m *Manager) Start(now uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return errNotInitialized
	}

	m.poller.Start(m.sched, now)
	m.running = true
	m.SendResponse("[MSG:ATC keepout v" + Version + " initialized]\n")
	return nil
}

// Service runs every timer due at now: sensor polls and move completions
func (m *Manager) Service(now uint32) {
	m.sched.Dispatch(now)
}

// ProcessLine processes one line of input and queues the response
func (m *Manager) ProcessLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if line == "?" {
		m.SendResponse(m.Status() + "\n")
		return nil
	}

	m.mu.Lock()
	err := m.executeLine(line)
	m.mu.Unlock()

	if err != nil {
		m.SendResponse("error:" + err.Error() + "\n")
		return err
	}
	m.SendResponse("ok\n")
	return nil
}

func (m *Manager) executeLine(line string) error {
	if !m.initialized {
		return errNotInitialized
	}

	if strings.HasPrefix(line, "$") {
		return m.executeSystem(line[1:])
	}

	msgs, err := m.interpreter.ExecuteLine(line)
	for _, msg := range msgs {
		m.SendResponse("[MSG:" + msg + "]\n")
	}
	return err
}

// executeSystem handles $ lines, cmd has the $ stripped
func (m *Manager) executeSystem(cmd string) error {
	upper := strings.ToUpper(cmd)
	switch {
	case upper == "$":
		s := m.store.Current()
		for _, id := range settings.IDs() {
			m.SendResponse(s.Format(id) + "\n")
		}
		return nil

	case upper == "#":
		m.SendResponse(keepout.ParamsLine(m.state.Bounds()) + "\n")
		return nil

	case upper == "I":
		m.SendResponse("[PLUGIN:SIENCI ATCi plugin v" + Version + "]\n")
		return nil

	case upper == "C":
		st := m.interpreter.GetState()
		m.interpreter.SetCheckMode(!st.CheckMode)
		if st.CheckMode {
			m.SendResponse("[MSG:Enabled]\n")
		} else {
			m.SendResponse("[MSG:Disabled]\n")
		}
		return nil

	case upper == "RST=$":
		s, err := m.store.Restore()
		if err != nil {
			return err
		}
		m.applySettings(s)
		return nil

	case strings.HasPrefix(upper, "J="):
		return m.interpreter.Jog(cmd[2:])
	}

	idText, valueText, ok := strings.Cut(cmd, "=")
	if !ok {
		return fmt.Errorf("%w: $%s", errUnknownCommand, cmd)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idText))
	if err != nil {
		return fmt.Errorf("%w: $%s", errUnknownCommand, cmd)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueText), 64)
	if err != nil {
		return fmt.Errorf("%w: %s", gcode.ErrBadNumber, valueText)
	}

	s, err := m.store.Set(id, value)
	if err != nil {
		return err
	}
	m.applySettings(s)
	return nil
}

// ProcessByte processes a single byte of input (for serial streaming).
// '?' is answered at once without waiting for a line end.
func (m *Manager) ProcessByte(b byte) error {
	if b == '?' {
		m.SendResponse(m.Status() + "\n")
		return nil
	}

	line, done, err := m.parser.Feed(b)
	if err != nil {
		m.SendResponse("error:" + err.Error() + "\n")
		return err
	}
	if !done {
		return nil
	}
	return m.ProcessLine(line)
}

// SendResponse queues a response to be sent to the host
func (m *Manager) SendResponse(response string) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	m.outputBuffer = append(m.outputBuffer, response...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	m.outMu.Lock()
	defer m.outMu.Unlock()

	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Status renders the realtime report, e.g. <Idle|MPos:0.000,0.000,0.000|ATCI:SE>.
// The state is Check, Tool while a monitored tool change runs, Run or Idle.
func (m *Manager) Status() string {
	if m.planner == nil {
		return "<Alarm|ATCI:" + keepout.StatusFlags(m.state.Snapshot(), keepout.Inputs{}) + ">"
	}

	mode := "Idle"
	if !m.planner.IsIdle() {
		mode = "Run"
	}
	if m.toolChange.MacroRunning() {
		mode = "Tool"
	}
	m.mu.Lock()
	if m.interpreter.GetState().CheckMode {
		mode = "Check"
	}
	m.mu.Unlock()

	pos := m.planner.MachinePosition()
	return fmt.Sprintf("<%s|MPos:%.3f,%.3f,%.3f%s>",
		mode, pos.X, pos.Y, pos.Z,
		keepout.StatusField(m.state.Snapshot(), m.poller.Inputs()))
}

// State returns the keepout state
func (m *Manager) State() *keepout.State {
	return m.state
}

// Inputs returns the last sensor sample
func (m *Manager) Inputs() keepout.Inputs {
	if m.poller == nil {
		return keepout.Inputs{}
	}
	return m.poller.Inputs()
}

// Position returns the planned position
func (m *Manager) Position() standalone.Position {
	if m.planner == nil {
		return standalone.Position{}
	}
	return m.planner.Position()
}

// Settings returns the current keepout settings
func (m *Manager) Settings() settings.Settings {
	if m.store == nil {
		return settings.Defaults()
	}
	return m.store.Current()
}

// Stop halts all operation
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	if m.poller != nil {
		m.poller.Stop(m.sched)
	}
	if m.planner != nil {
		m.planner.ClearQueue()
	}
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetState returns the current machine state
func (m *Manager) GetState() *standalone.MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter != nil {
		return m.interpreter.GetState()
	}
	return nil
}

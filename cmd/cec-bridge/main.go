package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jvanharn/node-hdmi-cec/cec"
)

var (
	logger    *slog.Logger
	monitor   *cec.Monitor
	commander *cec.Commander
	events    *eventLog
	metrics   *Metrics
	hub       *wsHub
	broker    *mqttBridge
)

// EventRecord is the JSON shape of one bridge event, shared by the
// recent-events endpoint, the websocket stream and the MQTT topics.
type EventRecord struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// eventLog keeps the most recent bridge events for /api/events/recent.
type eventLog struct {
	mu      sync.RWMutex
	records []EventRecord
	max     int
}

func newEventLog(max int) *eventLog {
	return &eventLog{records: make([]EventRecord, 0, max), max: max}
}

func (l *eventLog) Add(rec EventRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.max {
		l.records = l.records[1:]
	}
}

func (l *eventLog) Recent() []EventRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]EventRecord, len(l.records))
	copy(out, l.records)
	return out
}

// publish fans one event out to the ring buffer, websocket clients and
// the MQTT broker.
func publish(event string, data any) {
	rec := EventRecord{Event: event, Timestamp: time.Now(), Data: data}
	events.Add(rec)
	hub.Broadcast(rec)
	if broker != nil {
		broker.Publish(rec)
	}
	metrics.EventsEmitted.WithLabelValues(event).Inc()
}

func packetData(p *cec.Packet) map[string]any {
	data := map[string]any{
		"source":      int(p.Source),
		"source_name": p.Source.String(),
		"target":      int(p.Target),
		"target_name": p.Target.String(),
		"raw":         p.String(),
	}
	if p.OpcodeSet {
		data["opcode"] = p.Opcode
		if p.Opcode != cec.InvalidByte {
			data["opcode_name"] = cec.Opcode(p.Opcode).String()
		}
		data["args"] = p.Args
	}
	return data
}

// wireEvents republishes the monitor's event surface to the bridge's
// outbound channels.
func wireEvents() {
	monitor.On(cec.EventReady, func(payload any) {
		metrics.AdapterReady.Set(1)
		publish(cec.EventReady, payload)
	})
	monitor.On(cec.EventStop, func(payload any) {
		metrics.AdapterReady.Set(0)
		publish(cec.EventStop, nil)
	})
	monitor.On(cec.EventPolling, func(any) {
		metrics.PollingMessages.Inc()
	})
	monitor.On(cec.EventPacket, func(payload any) {
		metrics.PacketsDecoded.Inc()
		publish(cec.EventPacket, packetData(payload.(*cec.Packet)))
	})
	monitor.On(cec.EventSetOSDName, func(payload any) {
		ev := payload.(cec.OSDNameEvent)
		publish(cec.EventSetOSDName, map[string]any{
			"source": int(ev.Packet.Source),
			"name":   ev.Name,
		})
	})
	monitor.On(cec.EventRoutingChange, func(payload any) {
		ev := payload.(cec.RoutingChangeEvent)
		publish(cec.EventRoutingChange, map[string]any{
			"from": ev.From.String(),
			"to":   ev.To.String(),
		})
	})
	monitor.On(cec.EventActiveSource, func(payload any) {
		ev := payload.(cec.ActiveSourceEvent)
		publish(cec.EventActiveSource, map[string]any{
			"source": ev.Source.String(),
		})
	})
	monitor.On(cec.EventReportPhysicalAddress, func(payload any) {
		ev := payload.(cec.PhysicalAddressEvent)
		publish(cec.EventReportPhysicalAddress, map[string]any{
			"address":     ev.Address.String(),
			"device_type": ev.DeviceType.String(),
		})
	})
	for _, name := range []string{cec.EventKeyDown, cec.EventKeyUp, cec.EventKeyPress} {
		name := name
		monitor.On(name, func(payload any) {
			ev := payload.(cec.KeyEvent)
			if name == cec.EventKeyPress {
				metrics.KeyPresses.WithLabelValues(ev.Key).Inc()
			}
			publish(name, map[string]any{
				"key":    ev.Key,
				"code":   ev.Code,
				"repeat": ev.Repeat,
			})
		})
	}
}

// HTTP Handlers

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{
		Status:  "error",
		Message: message,
	})
}

func respondSuccess(w http.ResponseWriter, message string, data any) {
	respondJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// addressVar reads the {address} route variable, defaulting to the TV.
func addressVar(r *http.Request) (cec.LogicalAddress, error) {
	addrStr := mux.Vars(r)["address"]
	if addrStr == "" {
		return cec.LogicalAddressTV, nil
	}
	addr, err := strconv.Atoi(addrStr)
	if err != nil || addr < 0 || addr > 15 {
		return 0, fmt.Errorf("invalid logical address %q", addrStr)
	}
	return cec.LogicalAddress(addr), nil
}

func queryStatus(err error) int {
	if errors.Is(err, cec.ErrTimeout) {
		metrics.QueryTimeouts.Inc()
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func sendStatus(err error) {
	if err != nil {
		metrics.SendsTotal.WithLabelValues("error").Inc()
	} else {
		metrics.SendsTotal.WithLabelValues("ok").Inc()
	}
}

func getDeviceHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := commander.GetDeviceInfo(addr)
	if err != nil {
		respondError(w, queryStatus(err), err.Error())
		return
	}

	respondSuccess(w, "Device info retrieved", map[string]any{
		"logical_address":  int(device.LogicalAddress),
		"address_name":     device.LogicalAddress.String(),
		"physical_address": device.PhysicalAddress.String(),
		"power_status":     device.PowerStatus.String(),
		"osd_name":         device.OSDName,
	})
}

func powerOnHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = commander.SetPowerState(addr, true)
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, fmt.Sprintf("Power on command sent to device %d", addr), nil)
}

func powerOffHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = commander.SetPowerState(addr, false)
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, fmt.Sprintf("Standby command sent to device %d", addr), nil)
}

func standbyHandler(w http.ResponseWriter, r *http.Request) {
	err := commander.BroadcastStandby()
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Standby broadcast to all devices", nil)
}

func getPowerStatusHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := commander.GetPowerState(addr)
	if err != nil {
		respondError(w, queryStatus(err), err.Error())
		return
	}

	respondSuccess(w, "Power status retrieved", map[string]any{
		"address": int(addr),
		"status":  status.String(),
	})
}

func volumeUpHandler(w http.ResponseWriter, r *http.Request) {
	err := commander.VolumeUp()
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Volume up command sent", nil)
}

func volumeDownHandler(w http.ResponseWriter, r *http.Request) {
	err := commander.VolumeDown()
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Volume down command sent", nil)
}

func muteHandler(w http.ResponseWriter, r *http.Request) {
	err := commander.Mute()
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Mute command sent", nil)
}

var keyMap = map[string]cec.Keycode{
	"up":     cec.KeycodeUp,
	"down":   cec.KeycodeDown,
	"left":   cec.KeycodeLeft,
	"right":  cec.KeycodeRight,
	"select": cec.KeycodeSelect,
	"enter":  cec.KeycodeEnter,
	"back":   cec.KeycodeExit,
	"home":   cec.KeycodeRootMenu,
	"menu":   cec.KeycodeSetupMenu,
	"play":   cec.KeycodePlay,
	"pause":  cec.KeycodePause,
	"stop":   cec.KeycodeStop,
	"power":  cec.KeycodePower,
}

func sendKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address int    `json:"address"`
		Key     string `json:"key"`
		Keycode int    `json:"keycode"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Address < 0 || req.Address > 15 {
		respondError(w, http.StatusBadRequest, "Invalid logical address")
		return
	}
	if req.Key == "" && req.Keycode == 0 {
		respondError(w, http.StatusBadRequest, "Either 'key' or 'keycode' must be provided (and keycode 0 must be specified via 'key': 'select')")
		return
	}

	var keycode cec.Keycode
	if req.Key != "" {
		k, ok := keyMap[req.Key]
		if !ok {
			respondError(w, http.StatusBadRequest, "Unsupported key name")
			return
		}
		keycode = k
	} else {
		if req.Keycode < 0 || req.Keycode > 0xFF {
			respondError(w, http.StatusBadRequest, "Keycode must be in range 0-255")
			return
		}
		keycode = cec.Keycode(req.Keycode)
	}

	err := commander.PressButton(cec.LogicalAddress(req.Address), keycode)
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Key command sent", nil)
}

func rawCommandHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target     int     `json:"target"`
		Opcode     int     `json:"opcode"`
		Parameters []uint8 `json:"parameters"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Target < 0 || req.Target > 15 {
		respondError(w, http.StatusBadRequest, "Invalid target logical address (must be 0-15)")
		return
	}
	if req.Opcode < 0 || req.Opcode > 0xFF {
		respondError(w, http.StatusBadRequest, "Invalid opcode (must be 0-255)")
		return
	}

	// Conservative limit on parameter bytes for a single CEC frame.
	const maxCECParameters = 14
	if len(req.Parameters) > maxCECParameters {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Too many parameters (max %d)", maxCECParameters))
		return
	}

	err := monitor.SendOperation(cec.LogicalAddress(req.Target), cec.Opcode(req.Opcode), req.Parameters)
	sendStatus(err)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, "Raw command sent", nil)
}

func recentEventsHandler(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, "Events retrieved", events.Recent())
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, "Service is healthy", map[string]any{
		"version":       "1.0.0",
		"adapter_ready": monitor.Ready(),
		"own_address":   int(monitor.OwnAddress()),
		"address_name":  monitor.OwnAddress().String(),
	})
}

func deviceTypeFromFlag(s string) cec.DeviceType {
	switch s {
	case "t":
		return cec.DeviceTypeTV
	case "u":
		return cec.DeviceTypeTuner
	case "p":
		return cec.DeviceTypePlaybackDevice
	case "a":
		return cec.DeviceTypeAudioSystem
	default:
		return cec.DeviceTypeRecordingDevice
	}
}

func main() {
	bindAddr := flag.String("bind", ":8080", "Bind address (e.g., :8080 for all interfaces, localhost:8080 for local only)")
	adapterCmd := flag.String("adapter-cmd", "cec-client", "Adapter client binary")
	adapterDev := flag.String("adapter", "", "CEC adapter device path (auto-detect if empty)")
	deviceName := flag.String("name", "cec-bridge", "OSD device name announced to the bus")
	deviceType := flag.String("type", "r", "Device type: t(v), r(ecorder), u (tuner), p(layback), a(udio)")
	monitorMode := flag.Bool("monitor", false, "Surface packets addressed to other devices too")
	mqttBroker := flag.String("mqtt", "", "MQTT broker URL (e.g. tcp://localhost:1883); disabled if empty")
	mqttPrefix := flag.String("mqtt-prefix", "cec", "MQTT topic prefix")
	flag.Parse()

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	monitor = cec.NewMonitor(cec.MonitorConfig{
		OwnAddress:  cec.LogicalAddressUnregistered,
		MonitorMode: *monitorMode,
		Logger:      logger,
	})
	commander = cec.NewCommander(monitor)
	cec.NewRemote(monitor)

	events = newEventLog(100)
	registry := prometheus.NewRegistry()
	metrics = NewMetrics(registry)
	hub = newWSHub(logger)
	wireEvents()

	client := cec.NewClient(monitor, cec.ClientConfig{
		Command:     *adapterCmd,
		Device:      *adapterDev,
		OSDName:     *deviceName,
		DeviceType:  deviceTypeFromFlag(*deviceType),
		MonitorMode: *monitorMode,
		Logger:      logger,
	})
	if err := client.Start(); err != nil {
		logger.Error("failed to start adapter", "error", err)
		os.Exit(1)
	}

	addr, err := client.WaitReady(30 * time.Second)
	if err != nil {
		logger.Error("adapter did not become ready", "error", err)
		_ = client.Stop()
		os.Exit(1)
	}
	logger.Info("bus joined", "address", addr.String())

	if *mqttBroker != "" {
		broker, err = newMQTTBridge(*mqttBroker, *mqttPrefix, monitor, commander, logger)
		if err != nil {
			logger.Error("mqtt bridge unavailable", "error", err)
			_ = client.Stop()
			os.Exit(1)
		}
	}

	r := mux.NewRouter()

	// Device info
	r.HandleFunc("/api/devices/{address}", getDeviceHandler).Methods("GET")

	// Power control
	r.HandleFunc("/api/power/on", powerOnHandler).Methods("POST")
	r.HandleFunc("/api/power/on/{address}", powerOnHandler).Methods("POST")
	r.HandleFunc("/api/power/off", powerOffHandler).Methods("POST")
	r.HandleFunc("/api/power/off/{address}", powerOffHandler).Methods("POST")
	r.HandleFunc("/api/power/status", getPowerStatusHandler).Methods("GET")
	r.HandleFunc("/api/power/status/{address}", getPowerStatusHandler).Methods("GET")
	r.HandleFunc("/api/standby", standbyHandler).Methods("POST")

	// Volume control
	r.HandleFunc("/api/volume/up", volumeUpHandler).Methods("POST")
	r.HandleFunc("/api/volume/down", volumeDownHandler).Methods("POST")
	r.HandleFunc("/api/volume/mute", muteHandler).Methods("POST")

	// Navigation
	r.HandleFunc("/api/key", sendKeyHandler).Methods("POST")

	// Raw command
	r.HandleFunc("/api/command", rawCommandHandler).Methods("POST")

	// Events
	r.Handle("/api/events", hub)
	r.HandleFunc("/api/events/recent", recentEventsHandler).Methods("GET")

	// Health and metrics
	r.HandleFunc("/api/health", healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: *bindAddr, Handler: r}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		if broker != nil {
			broker.Close()
		}
		hub.Close()
		_ = client.Stop()
		_ = srv.Close()
	}()

	logger.Info("http server listening", "addr", *bindAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

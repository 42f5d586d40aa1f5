package agent

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"home_dispatch/internal/logger"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 60 * time.Second
	disconnectQuiesce     = 1000 // milliseconds
	tlsMinVersion         = tls.VersionTLS12
)

var errNotSubscribed = errors.New("mqtt: subscribe failed")

// MQTTConfig configures the broker connection used to reach the agent.
type MQTTConfig struct {
	Host        string
	Port        int
	TLS         bool
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Topics under the configured prefix:
//
//	<prefix>/execute          request  {"request_id", "command"}
//	<prefix>/output/<id>      progress {"line"}
//	<prefix>/result/<id>      final    {"success", "detail"}
func (c MQTTConfig) executeTopic() string { return c.TopicPrefix + "/execute" }
func (c MQTTConfig) resultFilter() string { return c.TopicPrefix + "/result/+" }
func (c MQTTConfig) outputFilter() string { return c.TopicPrefix + "/output/+" }

func (c MQTTConfig) requestID(t string) string {
	if i := strings.LastIndexByte(t, '/'); i >= 0 {
		return t[i+1:]
	}
	return t
}

// mqttConn is the subset of pahomqtt.Client the agent uses.
type mqttConn interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

type executeRequest struct {
	RequestID string `json:"request_id"`
	Command   string `json:"command"`
}

type executeResult struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

type outputLine struct {
	Line string `json:"line"`
}

type pendingCall struct {
	command string
	done    chan executeResult
}

// MQTTAgent publishes commands to an agent listening on an MQTT broker and
// waits for the correlated result.
type MQTTAgent struct {
	conn     mqttConn
	cfg      MQTTConfig
	log      *logger.Logger
	onOutput OutputFunc

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// DialMQTT connects to the broker and subscribes to agent replies.
func DialMQTT(cfg MQTTConfig, onOutput OutputFunc, log *logger.Logger) (*MQTTAgent, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "home-dispatch-" + uuid.NewString()[:8]
	}
	opts := buildClientOptions(cfg)

	var ready atomic.Pointer[MQTTAgent]
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		// resubscribe after reconnects; the first connect subscribes below
		if a := ready.Load(); a != nil {
			if err := a.subscribe(); err != nil {
				a.log.Errorw("agent_mqtt_resubscribe_failed", "error", err)
			}
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if a := ready.Load(); a != nil {
			a.log.Warnw("agent_mqtt_connection_lost", "error", err)
		}
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timeout after %v", defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	agent, err := newMQTTAgent(client, cfg, onOutput, log)
	if err != nil {
		client.Disconnect(disconnectQuiesce)
		return nil, err
	}
	ready.Store(agent)
	return agent, nil
}

func newMQTTAgent(conn mqttConn, cfg MQTTConfig, onOutput OutputFunc, log *logger.Logger) (*MQTTAgent, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "home/agent"
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &MQTTAgent{
		conn:     conn,
		cfg:      cfg,
		log:      log,
		onOutput: onOutput,
		pending:  make(map[string]*pendingCall),
	}
	if err := a.subscribe(); err != nil {
		return nil, err
	}
	return a, nil
}

func buildClientOptions(cfg MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}

func (a *MQTTAgent) subscribe() error {
	subs := map[string]pahomqtt.MessageHandler{
		a.cfg.resultFilter(): a.handleResult,
		a.cfg.outputFilter(): a.handleOutput,
	}
	for topic, handler := range subs {
		token := a.conn.Subscribe(topic, a.cfg.QoS, handler)
		if !token.WaitTimeout(defaultConnectTimeout) {
			return fmt.Errorf("%w: %s: timeout", errNotSubscribed, topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %v", errNotSubscribed, topic, err)
		}
	}
	return nil
}

// Execute implements Executor. It returns when the correlated result arrives
// or ctx ends.
func (a *MQTTAgent) Execute(ctx context.Context, command string) (Result, error) {
	id := uuid.NewString()
	call := &pendingCall{command: command, done: make(chan executeResult, 1)}

	a.mu.Lock()
	a.pending[id] = call
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.pending, id)
		a.mu.Unlock()
	}()

	payload, err := json.Marshal(executeRequest{RequestID: id, Command: command})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	token := a.conn.Publish(a.cfg.executeTopic(), a.cfg.QoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return Result{}, fmt.Errorf("%w: publish: %v", ErrDispatch, err)
		}
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: publish: %v", ErrDispatch, ctx.Err())
	}

	select {
	case res := <-call.done:
		if !res.Success {
			return Result{Detail: res.Detail}, fmt.Errorf("%w: %s", ErrDispatch, res.Detail)
		}
		return Result{Success: true, Detail: res.Detail}, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: no result: %v", ErrDispatch, ctx.Err())
	}
}

func (a *MQTTAgent) lookup(topic string) *pendingCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending[a.cfg.requestID(topic)]
}

func (a *MQTTAgent) handleResult(_ pahomqtt.Client, msg pahomqtt.Message) {
	call := a.lookup(msg.Topic())
	if call == nil {
		a.log.Debugw("agent_result_unmatched", "topic", msg.Topic())
		return
	}
	var res executeResult
	if err := json.Unmarshal(msg.Payload(), &res); err != nil {
		res = executeResult{Detail: "malformed agent result: " + err.Error()}
	}
	select {
	case call.done <- res:
	default: // duplicate delivery
	}
}

func (a *MQTTAgent) handleOutput(_ pahomqtt.Client, msg pahomqtt.Message) {
	call := a.lookup(msg.Topic())
	if call == nil || a.onOutput == nil {
		return
	}
	var line outputLine
	if err := json.Unmarshal(msg.Payload(), &line); err != nil || line.Line == "" {
		return
	}
	a.onOutput(call.command, line.Line)
}

// Close disconnects from the broker.
func (a *MQTTAgent) Close() {
	a.conn.Disconnect(disconnectQuiesce)
}

package opcua

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"opcflux/internal/domain"
	"opcflux/internal/ports"

	"github.com/google/uuid"
	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
)

// ErrNotConnected is returned for any call issued before Connect succeeds.
var ErrNotConnected = errors.New("opcua: not connected")

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	URI             string `yaml:"uri"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SecurityMode    string `yaml:"security_mode"`
	SecurityPolicy  string `yaml:"security_policy"`
	ApplicationName string `yaml:"application_name"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "opcflux edge"
	}
}

func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("uri is required")
	}
	return nil
}

// Client implements ports.Transport on top of gopcua. The wrapper survives
// disconnect/connect cycles; the underlying session is rebuilt as needed.
type Client struct {
	cfg        Config
	instanceID string

	mu         sync.Mutex
	client     *opcua.Client
	namespaces []string
	done       chan struct{}

	failMu         sync.Mutex
	transferFailed func(uint32)

	wg sync.WaitGroup
}

func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, instanceID: uuid.NewString()}, nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	cl, err := opcua.NewClient(c.cfg.URI, c.options()...)
	if err != nil {
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := cl.Connect(ctx); err != nil {
		return fmt.Errorf("opcua connect %s: %w", c.cfg.URI, err)
	}

	c.client = cl
	c.done = make(chan struct{})

	// Namespace table is needed to requalify URI-addressed references.
	if ns, err := cl.NamespaceArray(ctx); err == nil {
		c.namespaces = ns
	} else {
		log.Printf("opcua: namespace array read failed: %v", err)
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	done := c.done
	c.client = nil
	c.done = nil
	c.namespaces = nil
	c.mu.Unlock()

	if cl == nil {
		return nil
	}
	if done != nil {
		close(done)
	}
	err := cl.Close(ctx)
	c.wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("opcua disconnect: %w", err)
	}
	return nil
}

// Close tears the session down entirely. The caller drops its reference
// afterwards, so nothing beyond Disconnect is needed here.
func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}

func (c *Client) Browse(ctx context.Context, nodeID string) (ports.BrowsePage, error) {
	nid, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return ports.BrowsePage{}, fmt.Errorf("parse node id %q: %w", nodeID, err)
	}
	cl, _, err := c.connected()
	if err != nil {
		return ports.BrowsePage{}, err
	}

	req := &ua.BrowseRequest{
		View:                          &ua.ViewDescription{ViewID: ua.NewTwoByteNodeID(0)},
		RequestedMaxReferencesPerNode: 0,
		NodesToBrowse: []*ua.BrowseDescription{{
			NodeID:          nid,
			BrowseDirection: ua.BrowseDirectionForward,
			ReferenceTypeID: ua.NewNumericNodeID(0, id.References),
			IncludeSubtypes: true,
			NodeClassMask:   0,
			ResultMask:      uint32(ua.BrowseResultMaskAll),
		}},
	}
	resp, err := cl.Browse(ctx, req)
	if err != nil {
		return ports.BrowsePage{}, fmt.Errorf("browse %s: %w", nodeID, err)
	}
	return c.browsePage(resp.Results)
}

func (c *Client) BrowseNext(ctx context.Context, continuation []byte) (ports.BrowsePage, error) {
	cl, _, err := c.connected()
	if err != nil {
		return ports.BrowsePage{}, err
	}
	resp, err := cl.BrowseNext(ctx, &ua.BrowseNextRequest{
		ReleaseContinuationPoints: false,
		ContinuationPoints:        [][]byte{continuation},
	})
	if err != nil {
		return ports.BrowsePage{}, fmt.Errorf("browse next: %w", err)
	}
	return c.browsePage(resp.Results)
}

func (c *Client) CreateSubscription(ctx context.Context, interval time.Duration, onValue ports.ValueChangeHandler) (ports.SubscriptionHandle, error) {
	cl, done, err := c.connected()
	if err != nil {
		return nil, err
	}

	notifyCh := make(chan *opcua.PublishNotificationData, 16)
	sub, err := cl.Subscribe(ctx, &opcua.SubscriptionParameters{Interval: interval}, notifyCh)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	h := &subscription{
		owner:   c,
		sub:     sub,
		onValue: onValue,
		items:   make(map[uint32]string),
	}
	c.wg.Add(1)
	go h.pump(done, notifyCh)
	return h, nil
}

func (c *Client) SetTransferFailureHandler(fn func(subscriptionID uint32)) {
	c.failMu.Lock()
	c.transferFailed = fn
	c.failMu.Unlock()
}

func (c *Client) notifyTransferFailed(subscriptionID uint32) {
	c.failMu.Lock()
	fn := c.transferFailed
	c.failMu.Unlock()
	if fn != nil {
		fn(subscriptionID)
	}
}

func (c *Client) connected() (*opcua.Client, <-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, nil, ErrNotConnected
	}
	return c.client, c.done, nil
}

func (c *Client) options() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(c.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(c.cfg.SecurityPolicy)),
		opcua.ApplicationName(c.cfg.ApplicationName),
		opcua.ApplicationURI("urn:opcflux:" + c.instanceID),
		opcua.SessionName("opcflux-" + c.instanceID),
		opcua.AutoReconnect(true),
	}

	if c.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(c.cfg.Username, c.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	return opts
}

func (c *Client) browsePage(results []*ua.BrowseResult) (ports.BrowsePage, error) {
	if len(results) == 0 {
		return ports.BrowsePage{}, errors.New("opcua: empty browse response")
	}
	res := results[0]
	if res.StatusCode != ua.StatusOK {
		return ports.BrowsePage{}, fmt.Errorf("browse status: %s", res.StatusCode)
	}

	page := ports.BrowsePage{ContinuationPoint: res.ContinuationPoint}
	for _, rd := range res.References {
		if rd == nil || !rd.IsForward {
			continue
		}
		nid, err := c.resolveNodeID(rd.NodeID)
		if err != nil {
			log.Printf("opcua: skipping reference with unresolvable id: %v", err)
			continue
		}
		ref := ports.Reference{
			NodeID: nid.String(),
			Class:  domain.NodeClass(rd.NodeClass),
		}
		if rd.BrowseName != nil {
			ref.BrowseName = rd.BrowseName.Name
		}
		if rd.DisplayName != nil {
			ref.DisplayName = rd.DisplayName.Text
		}
		page.References = append(page.References, ref)
	}
	return page, nil
}

// resolveNodeID maps an expanded node id onto the session namespace table.
func (c *Client) resolveNodeID(exp *ua.ExpandedNodeID) (*ua.NodeID, error) {
	if exp == nil {
		return nil, errors.New("nil expanded node id")
	}
	nid := ua.NewNodeIDFromExpandedNodeID(exp)
	if exp.NamespaceURI == "" {
		return nid, nil
	}

	c.mu.Lock()
	namespaces := c.namespaces
	c.mu.Unlock()

	for i, uri := range namespaces {
		if uri == exp.NamespaceURI {
			return ua.ParseNodeID(fmt.Sprintf("ns=%d;%s", i, bareIdentifier(nid)))
		}
	}
	return nil, fmt.Errorf("namespace uri %q not in server table", exp.NamespaceURI)
}

// bareIdentifier strips any ns= prefix so the identifier can be requalified.
func bareIdentifier(nid *ua.NodeID) string {
	s := nid.String()
	if strings.HasPrefix(s, "ns=") {
		if i := strings.Index(s, ";"); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// subscription is one live server-side subscription plus its monitored items.
type subscription struct {
	owner   *Client
	sub     *opcua.Subscription
	onValue ports.ValueChangeHandler

	mu         sync.Mutex
	items      map[uint32]string // client handle -> node id
	nextHandle uint32
}

func (s *subscription) ID() uint32 { return s.sub.SubscriptionID }

func (s *subscription) MonitorValue(ctx context.Context, nodeID string) error {
	nid, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return fmt.Errorf("parse node id %q: %w", nodeID, err)
	}

	s.mu.Lock()
	s.nextHandle++
	handle := s.nextHandle
	s.items[handle] = nodeID
	s.mu.Unlock()

	req := opcua.NewMonitoredItemCreateRequestWithDefaults(nid, ua.AttributeIDValue, handle)
	res, err := s.sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
	if err != nil {
		return fmt.Errorf("monitor node %q: %w", nodeID, err)
	}
	if len(res.Results) == 0 {
		return fmt.Errorf("monitor node %q failed: empty result", nodeID)
	}
	if res.Results[0].StatusCode != ua.StatusOK {
		return fmt.Errorf("monitor node %q failed: %s", nodeID, res.Results[0].StatusCode)
	}
	return nil
}

func (s *subscription) pump(done <-chan struct{}, ch <-chan *opcua.PublishNotificationData) {
	defer s.owner.wg.Done()

	for {
		select {
		case <-done:
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				if isTransferFailure(notif.Error) {
					// The recovery handler runs on this goroutine; the
					// replacement subscription gets its own pump.
					s.owner.notifyTransferFailed(s.sub.SubscriptionID)
					return
				}
				log.Printf("opcua: notification error on subscription %d: %v", s.sub.SubscriptionID, notif.Error)
				continue
			}
			s.dispatch(notif.Value)
		}
	}
}

func (s *subscription) dispatch(val any) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	for _, item := range data.MonitoredItems {
		s.mu.Lock()
		nodeID, ok := s.items[item.ClientHandle]
		s.mu.Unlock()
		if !ok || item.Value == nil {
			continue
		}

		ts := item.Value.ServerTimestamp
		if ts.IsZero() {
			ts = item.Value.SourceTimestamp
		}
		if ts.IsZero() {
			ts = time.Now()
		}

		var v any
		if item.Value.Value != nil {
			v = item.Value.Value.Value()
		}
		s.onValue(nodeID, v, ts)
	}
}

func isTransferFailure(err error) bool {
	return errors.Is(err, ua.StatusBadSubscriptionIDInvalid) ||
		errors.Is(err, ua.StatusBadNoSubscription)
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Transport = (*Client)(nil)

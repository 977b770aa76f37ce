// Package crosslane is the application core for cross-chain token
// transfers: a network registry, pre-transfer quoting, transfer
// execution through external signers, delivery tracking and a
// persisted transfer history.
package crosslane

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/executor"
	"github.com/crosslane/crosslane/history"
	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/metrics"
	"github.com/crosslane/crosslane/quote"
	"github.com/crosslane/crosslane/tracker"
	"github.com/crosslane/crosslane/types"
)

// Crosslane owns one client per configured network and the services
// layered on top of them. Clients are dialed lazily on first use and
// memoized for the lifetime of the instance.
type Crosslane struct {
	config  *types.Config
	log     logger.Logger
	rec     metrics.Recorder
	timeout time.Duration

	trackerCfg tracker.Config

	descriptors map[types.Network]*types.NetworkDescriptor
	bySelector  map[uint64]*types.NetworkDescriptor

	mu      sync.Mutex
	clients map[types.Network]clients.ChainClient

	quotes *quote.Service
	exec   *executor.Executor

	histLog    *history.Log
	reconciler *history.Reconciler
}

// New validates config and builds the registry. No network connection
// is opened here; the first operation against a network dials it.
func New(config *types.Config, opts ...Option) (*Crosslane, error) {
	if config == nil {
		return nil, types.ValidationError("configuration is required")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, types.ValidationError(fmt.Sprintf("invalid configuration: %v", err))
	}

	c := &Crosslane{
		config:      config,
		log:         logger.NoopLogger{},
		rec:         metrics.NoopRecorder{},
		timeout:     config.DefaultTimeout,
		trackerCfg:  tracker.DefaultConfig(),
		descriptors: make(map[types.Network]*types.NetworkDescriptor, len(config.Networks)),
		bySelector:  make(map[uint64]*types.NetworkDescriptor, len(config.Networks)),
		clients:     make(map[types.Network]clients.ChainClient),
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}

	for _, desc := range config.Networks {
		if _, dup := c.descriptors[desc.Key]; dup {
			return nil, types.ValidationError(fmt.Sprintf("duplicate network key %q", desc.Key))
		}
		if prev, dup := c.bySelector[desc.Selector]; dup {
			return nil, types.ValidationError(fmt.Sprintf("networks %q and %q share selector %d", prev.Key, desc.Key, desc.Selector))
		}
		c.descriptors[desc.Key] = desc
		c.bySelector[desc.Selector] = desc
	}

	for _, opt := range opts {
		opt(c)
	}

	c.quotes = quote.NewService(c, c.log, c.rec)
	c.exec = executor.New(c.log, c.rec)
	return c, nil
}

// Networks lists the configured network keys.
func (c *Crosslane) Networks() []types.Network {
	out := make([]types.Network, 0, len(c.config.Networks))
	for _, desc := range c.config.Networks {
		out = append(out, desc.Key)
	}
	return out
}

// Descriptor returns the static configuration of one network.
func (c *Crosslane) Descriptor(network types.Network) (*types.NetworkDescriptor, error) {
	desc, ok := c.descriptors[network]
	if !ok {
		return nil, types.ValidationError(fmt.Sprintf("unknown network %q", network))
	}
	return desc, nil
}

// DescriptorBySelector resolves a protocol chain selector back to its
// network.
func (c *Crosslane) DescriptorBySelector(selector uint64) (*types.NetworkDescriptor, error) {
	desc, ok := c.bySelector[selector]
	if !ok {
		return nil, types.ValidationError(fmt.Sprintf("no network configured for selector %d", selector))
	}
	return desc, nil
}

// Client returns the chain client for a network, dialing it on first
// use.
func (c *Crosslane) Client(network types.Network) (clients.ChainClient, error) {
	desc, err := c.Descriptor(network)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[network]; ok {
		return client, nil
	}

	var client clients.ChainClient
	switch desc.Family {
	case types.ChainEVM:
		client, err = clients.NewEVMClient(desc)
	case types.ChainSolana:
		client, err = clients.NewSolanaClient(desc)
	default:
		return nil, types.ValidationError(fmt.Sprintf("unsupported chain family %q", desc.Family))
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", network, err)
	}

	c.log.Info("network client connected", map[string]any{"network": network, "family": desc.Family})
	c.clients[network] = client
	return client, nil
}

// Quote exposes the pre-transfer read services: fees, balances, token
// metadata, lane latency and rate limits.
func (c *Crosslane) Quote() *quote.Service {
	return c.quotes
}

// Transfer submits req from source to destination through signer and
// returns the resulting session. The session ends in StageTracking on
// success; the caller then drives Await to follow delivery. On failure
// the session carries the classified error and StageFailed.
func (c *Crosslane) Transfer(ctx context.Context, source, destination types.Network, signer executor.Signer, req *types.TransferRequest, cb executor.Callbacks) (*types.TransferSession, error) {
	session := &types.TransferSession{
		Source:      source,
		Destination: destination,
		Sender:      signer.From(),
		Receiver:    req.Receiver,
		Request:     req,
		Stage:       types.StageIdle,
		StartedAt:   time.Now(),
	}

	srcClient, err := c.Client(source)
	if err != nil {
		return fail(session, err)
	}
	destDesc, err := c.Descriptor(destination)
	if err != nil {
		return fail(session, err)
	}
	if srcDesc := c.descriptors[source]; srcDesc.Selector == destDesc.Selector {
		return fail(session, types.ValidationError("source and destination must differ"))
	}

	if len(req.TokenAmounts) > 0 {
		lane := c.quotes.LaneStatus(ctx, source, req.TokenAmounts[0].Token, destDesc.Selector)
		if lane.Err == nil && !lane.TimedOut && !lane.Value.Supported {
			return fail(session, &types.TransferError{
				Code:     types.ErrCodeProtocol,
				Name:     clients.ErrNameUnsupportedToken,
				Message:  "this token cannot travel this lane",
				Recovery: "pick a supported token or destination",
			})
		}
	}

	feeRes := c.quotes.Fee(ctx, source, destDesc.Selector, req)
	if feeRes.Err != nil {
		return fail(session, feeRes.Err)
	}
	if feeRes.TimedOut {
		return fail(session, types.TimeoutError("fee quote"))
	}
	session.Fee = feeRes.Value

	userCB := cb
	cb.OnStage = func(stage types.Stage) {
		session.Stage = stage
		if userCB.OnStage != nil {
			userCB.OnStage(stage)
		}
	}
	cb.OnTxHash = func(h string) {
		session.SourceTxHashes = append(session.SourceTxHashes, h)
		if userCB.OnTxHash != nil {
			userCB.OnTxHash(h)
		}
	}
	cb.OnMessageID = func(id string) {
		session.MessageID = id
		if userCB.OnMessageID != nil {
			userCB.OnMessageID(id)
		}
	}

	sub, err := c.exec.Execute(ctx, srcClient, signer, destDesc.Selector, req, session.Fee, cb)
	if err != nil {
		c.rec.IncCounter("transfer_failed", map[string]string{"network": string(source)})
		return fail(session, err)
	}

	session.SourceTxHashes = sub.TxHashes
	session.MessageID = sub.MessageID
	session.Stage = types.StageTracking
	c.rec.IncCounter("transfer_submitted", map[string]string{"network": string(source)})
	c.recordHistory(session)

	if sub.MessageID == "" {
		c.log.Warn("transfer submitted without message id", map[string]any{"warning": sub.Warning})
	}
	return session, nil
}

// Await follows a submitted session until delivery is terminal, the
// error budget is spent, or the tracking timeout passes. The session
// is updated in place; onUpdate fires per status change.
func (c *Crosslane) Await(ctx context.Context, session *types.TransferSession, onUpdate func(*types.StatusSnapshot)) error {
	if session.MessageID == "" {
		return types.ValidationError("session has no message id to track")
	}
	srcClient, err := c.Client(session.Source)
	if err != nil {
		return err
	}

	t := tracker.New(c.trackerCfg, srcClient, c.log, c.rec)
	snap, err := t.Track(ctx, session.MessageID, onUpdate)
	session.TimedOut = t.TimedOut()

	if snap != nil {
		c.updateHistory(session, snap)
		switch snap.Simple {
		case types.SimpleSuccess:
			session.Stage = types.StageSuccess
			c.rec.IncCounter("transfer_success", map[string]string{"network": string(session.Source)})
			return nil
		case types.SimpleFailed:
			session.Stage = types.StageFailed
			session.Err = &types.TransferError{
				Code:     types.ErrCodeProtocol,
				Message:  "the transfer failed on the destination network",
				Detail:   session.MessageID,
				Recovery: "the tokens were not delivered, contact support with the message id",
			}
			c.rec.IncCounter("transfer_failed", map[string]string{"network": string(session.Source)})
			return nil
		}
	}
	return err
}

// Status is a one-shot delivery check for a message sent from source.
func (c *Crosslane) Status(ctx context.Context, source types.Network, messageID string) (*types.StatusSnapshot, error) {
	srcClient, err := c.Client(source)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return tracker.New(c.trackerCfg, srcClient, c.log, c.rec).Snapshot(ctx, messageID)
}

// History returns the persisted transfer log, or nil when no history
// store was configured.
func (c *Crosslane) History() *history.Log {
	return c.histLog
}

// StartReconciler begins background reconciliation of pending history
// records. It is a no-op without a configured history store.
func (c *Crosslane) StartReconciler(ctx context.Context) {
	if c.histLog == nil || c.reconciler != nil {
		return
	}
	c.reconciler = history.NewReconciler(c.histLog, func(ctx context.Context, source types.Network, messageID string) (*types.MessageRecord, error) {
		client, err := c.Client(source)
		if err != nil {
			return nil, err
		}
		return client.GetMessageByID(ctx, messageID)
	}, c.log)
	c.reconciler.Start(ctx)
}

// Close stops background work and closes every dialed client.
func (c *Crosslane) Close() {
	if c.reconciler != nil {
		c.reconciler.Stop()
		c.reconciler = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[types.Network]clients.ChainClient)
}

func (c *Crosslane) recordHistory(session *types.TransferSession) {
	if c.histLog == nil || session.MessageID == "" {
		return
	}
	rec := types.HistoryRecord{
		MessageID:   session.MessageID,
		Source:      session.Source,
		Destination: session.Destination,
		Sender:      session.Sender,
		Receiver:    session.Receiver,
		Status:      types.HistoryPending,
		CreatedAt:   session.StartedAt,
	}
	if len(session.SourceTxHashes) > 0 {
		rec.SourceTxHash = session.SourceTxHashes[len(session.SourceTxHashes)-1]
	}
	if len(session.Request.TokenAmounts) > 0 {
		ta := session.Request.TokenAmounts[0]
		rec.TokenSymbol = ta.Token
		if ta.Amount != nil {
			rec.Amount = ta.Amount.String()
		}
	}
	if err := c.histLog.AddOrUpdate(rec); err != nil {
		c.log.Warn("history write failed", map[string]any{"message_id": session.MessageID, "error": err.Error()})
	}
}

func (c *Crosslane) updateHistory(session *types.TransferSession, snap *types.StatusSnapshot) {
	if c.histLog == nil {
		return
	}
	status := types.HistoryPending
	switch snap.Simple {
	case types.SimpleSuccess:
		status = types.HistorySuccess
	case types.SimpleFailed:
		status = types.HistoryFailed
	}
	if err := c.histLog.UpdateStatus(session.MessageID, status, snap.DestTxHash, snap.CheckedAt); err != nil {
		c.log.Warn("history update failed", map[string]any{"message_id": session.MessageID, "error": err.Error()})
	}
}

func fail(session *types.TransferSession, err error) (*types.TransferSession, error) {
	session.Stage = types.StageFailed
	session.Err = clients.ClassifyError(err)
	return session, err
}

// NormalizeNetworkKey lowercases and trims a user-supplied network key
// so lookups tolerate display formatting.
func NormalizeNetworkKey(s string) types.Network {
	return types.Network(strings.ToLower(strings.TrimSpace(s)))
}

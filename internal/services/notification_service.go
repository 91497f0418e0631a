package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier delivers contract notifications. Implementations own the actual
// transport; every call is best-effort from the service's point of view.
type Notifier interface {
	SendContractNotification(contract models.Contract, recipient string) error
	SendSignatureRequest(contract models.Contract, recipient string) error
	SendSignatureNotification(contract models.Contract, recipient string, signerRole models.SignerRole) error
	SendStatusUpdateNotification(contract models.Contract) error
}

// DeliveryKind selects which Notifier method a queued delivery invokes
type DeliveryKind string

const (
	DeliveryContractCreated   DeliveryKind = "contract_created"
	DeliverySignatureRequest  DeliveryKind = "signature_request"
	DeliverySignatureReceived DeliveryKind = "signature_received"
	DeliveryStatusUpdate      DeliveryKind = "status_update"
)

// Delivery is one queued notification
type Delivery struct {
	Kind      DeliveryKind
	Contract  models.Contract
	Recipient string
	Role      models.SignerRole
}

// NotificationQueue is the producer side of the dispatcher, consumed by
// ContractService so notification transport stays off the write path
type NotificationQueue interface {
	Enqueue(delivery Delivery)
}

// DispatcherConfig tunes the notification worker
type DispatcherConfig struct {
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultDispatcherConfig returns the worker defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:   64,
		MaxAttempts: 3,
		BaseBackoff: 250 * time.Millisecond,
	}
}

// NotificationDispatcher decouples notification delivery from the
// transactional write path. Deliveries are queued onto a channel, retried
// with exponential backoff, and dead-lettered once the attempt budget is
// exhausted. An unavailable channel can never stall or fail a contract
// mutation that already committed.
type NotificationDispatcher struct {
	notifier Notifier
	db       *gorm.DB
	log      *logrus.Logger
	cfg      DispatcherConfig

	queue chan Delivery
	wg    sync.WaitGroup
	once  sync.Once
}

// NewNotificationDispatcher creates a dispatcher; call Start before use
func NewNotificationDispatcher(notifier Notifier, db *gorm.DB, log *logrus.Logger, cfg DispatcherConfig) *NotificationDispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultDispatcherConfig().MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultDispatcherConfig().BaseBackoff
	}
	return &NotificationDispatcher{
		notifier: notifier,
		db:       db,
		log:      log,
		cfg:      cfg,
		queue:    make(chan Delivery, cfg.QueueSize),
	}
}

// Start launches the delivery worker
func (d *NotificationDispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for delivery := range d.queue {
			d.deliver(delivery)
		}
	}()
}

// Stop drains the queue and waits for in-flight deliveries
func (d *NotificationDispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Enqueue queues a delivery without blocking. A full queue dead-letters the
// delivery immediately rather than stalling the caller.
func (d *NotificationDispatcher) Enqueue(delivery Delivery) {
	select {
	case d.queue <- delivery:
	default:
		d.log.WithFields(logrus.Fields{
			"contract_id": delivery.Contract.ID,
			"kind":        delivery.Kind,
		}).Warn("notification queue full, dead-lettering delivery")
		d.deadLetter(delivery, 0, fmt.Errorf("queue full"))
	}
}

func (d *NotificationDispatcher) deliver(delivery Delivery) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = d.send(delivery)
		if lastErr == nil {
			return
		}
		d.log.WithFields(logrus.Fields{
			"contract_id": delivery.Contract.ID,
			"kind":        delivery.Kind,
			"attempt":     attempt,
		}).WithError(lastErr).Warn("notification delivery failed")

		if attempt < d.cfg.MaxAttempts {
			time.Sleep(d.cfg.BaseBackoff * time.Duration(1<<(attempt-1)))
		}
	}
	d.deadLetter(delivery, d.cfg.MaxAttempts, lastErr)
}

func (d *NotificationDispatcher) send(delivery Delivery) error {
	switch delivery.Kind {
	case DeliveryContractCreated:
		return d.notifier.SendContractNotification(delivery.Contract, delivery.Recipient)
	case DeliverySignatureRequest:
		return d.notifier.SendSignatureRequest(delivery.Contract, delivery.Recipient)
	case DeliverySignatureReceived:
		return d.notifier.SendSignatureNotification(delivery.Contract, delivery.Recipient, delivery.Role)
	case DeliveryStatusUpdate:
		return d.notifier.SendStatusUpdateNotification(delivery.Contract)
	default:
		return fmt.Errorf("unknown delivery kind %q", delivery.Kind)
	}
}

func (d *NotificationDispatcher) deadLetter(delivery Delivery, attempts int, cause error) {
	if d.db == nil {
		return
	}
	record := &models.DeadLetter{
		ContractID: delivery.Contract.ID,
		Kind:       string(delivery.Kind),
		Recipient:  delivery.Recipient,
		Attempts:   attempts,
		LastError:  cause.Error(),
	}
	if err := d.db.Create(record).Error; err != nil {
		d.log.WithError(err).Error("failed to persist dead letter")
	}
}

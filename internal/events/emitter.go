package events

import (
	"encoding"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Record subjects, appended to the configured subject prefix.
const (
	SubjectIncome    = "income"
	SubjectSales     = "sales"
	SubjectExpenses  = "expenses"
	SubjectTaoLots   = "taolots"
	SubjectTransfers = "transfers"
	SubjectJournal   = "journal"
)

// Emitter publishes ledger records to NATS, one subject per record kind.
type Emitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewEmitter(natsURL, subjectPrefix string) (*Emitter, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Emitter{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}, nil
}

// EmitRecord publishes one record on `<prefix>.<kind>`.
func (e *Emitter) EmitRecord(kind string, record encoding.BinaryMarshaler) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	return e.conn.Publish(e.subject(kind), data)
}

func (e *Emitter) subject(kind string) string {
	return e.subjectPrefix + "." + kind
}

func (e *Emitter) Flush() error {
	return e.conn.Flush()
}

func (e *Emitter) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}

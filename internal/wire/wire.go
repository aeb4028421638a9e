// Package wire implements the TCP binary framing for vellum's venue
// protocol: new-order and cancel-order requests in, execution/error reports
// out. Generalized from the teacher's internal/net/messages.go, which only
// carried a single equities order type with fixed-width float64/uint64
// fields; here every field that can vary in width (decimal strings, symbols,
// owners) is length-prefixed so the frame can carry any of the seven order
// types spec.md §3 defines.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vellum/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

// MessageType identifies the request frame kind.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// ReportType identifies the response frame kind.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

// baseHeaderLen is the 2-byte MessageType prefix every request frame starts
// with, mirroring the teacher's BaseMessage.
const baseHeaderLen = 2

// NewOrderRequest is the wire shape of a new-order submission. It carries
// every field common.Order needs; conditional-only fields are simply empty
// for order types that don't use them.
type NewOrderRequest struct {
	Type            common.OrderType
	Side            common.Side
	Symbol          string
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	StopPrice       decimal.Decimal
	TakeProfitPrice decimal.Decimal
	Owner           string
}

// Order converts the wire request into the engine's order type. Timestamp
// and ID are left zero/empty for Engine.Submit's Normalize step to fill in.
func (r NewOrderRequest) Order() common.Order {
	return common.Order{
		Symbol:          r.Symbol,
		Type:            r.Type,
		Side:            r.Side,
		Quantity:        r.Quantity,
		Price:           r.Price,
		StopPrice:       r.StopPrice,
		TakeProfitPrice: r.TakeProfitPrice,
		Owner:           r.Owner,
	}
}

// Encode serializes r into a length-prefixed request frame.
func (r NewOrderRequest) Encode() []byte {
	buf := []byte{}
	buf = appendUint16(buf, uint16(NewOrder))
	buf = append(buf, byte(r.Type))
	buf = append(buf, byte(r.Side))
	buf = appendString(buf, r.Symbol)
	buf = appendString(buf, r.Quantity.String())
	buf = appendString(buf, decimalOrEmpty(r.Price))
	buf = appendString(buf, decimalOrEmpty(r.StopPrice))
	buf = appendString(buf, decimalOrEmpty(r.TakeProfitPrice))
	buf = appendString(buf, r.Owner)
	return buf
}

func decimalOrEmpty(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func decodeNewOrder(body []byte) (NewOrderRequest, error) {
	var r NewOrderRequest
	if len(body) < 2 {
		return r, ErrMessageTooShort
	}
	r.Type = common.OrderType(body[0])
	r.Side = common.Side(body[1])
	body = body[2:]

	var err error
	var symbol, qty, price, stop, takeProfit, owner string
	if symbol, body, err = readString(body); err != nil {
		return r, err
	}
	if qty, body, err = readString(body); err != nil {
		return r, err
	}
	if price, body, err = readString(body); err != nil {
		return r, err
	}
	if stop, body, err = readString(body); err != nil {
		return r, err
	}
	if takeProfit, body, err = readString(body); err != nil {
		return r, err
	}
	if owner, _, err = readString(body); err != nil {
		return r, err
	}

	r.Symbol = symbol
	r.Owner = owner
	if r.Quantity, err = parseDecimal(qty); err != nil {
		return r, fmt.Errorf("quantity: %w", err)
	}
	if r.Price, err = parseOptionalDecimal(price); err != nil {
		return r, fmt.Errorf("price: %w", err)
	}
	if r.StopPrice, err = parseOptionalDecimal(stop); err != nil {
		return r, fmt.Errorf("stop_price: %w", err)
	}
	if r.TakeProfitPrice, err = parseOptionalDecimal(takeProfit); err != nil {
		return r, fmt.Errorf("take_profit_price: %w", err)
	}
	return r, nil
}

// CancelOrderRequest cancels a single resting order.
type CancelOrderRequest struct {
	Symbol  string
	Side    common.Side
	Price   decimal.Decimal
	OrderID string
}

func (r CancelOrderRequest) Encode() []byte {
	buf := []byte{}
	buf = appendUint16(buf, uint16(CancelOrder))
	buf = append(buf, byte(r.Side))
	buf = appendString(buf, r.Symbol)
	buf = appendString(buf, r.Price.String())
	buf = appendString(buf, r.OrderID)
	return buf
}

func decodeCancelOrder(body []byte) (CancelOrderRequest, error) {
	var r CancelOrderRequest
	if len(body) < 1 {
		return r, ErrMessageTooShort
	}
	r.Side = common.Side(body[0])
	body = body[1:]

	var err error
	var symbol, price, orderID string
	if symbol, body, err = readString(body); err != nil {
		return r, err
	}
	if price, body, err = readString(body); err != nil {
		return r, err
	}
	if orderID, _, err = readString(body); err != nil {
		return r, err
	}

	r.Symbol = symbol
	r.OrderID = orderID
	if r.Price, err = parseDecimal(price); err != nil {
		return r, fmt.Errorf("price: %w", err)
	}
	return r, nil
}

// Decode parses a raw request frame into either a NewOrderRequest or a
// CancelOrderRequest.
func Decode(msg []byte) (any, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return decodeNewOrder(body)
	case CancelOrder:
		return decodeCancelOrder(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

// Report is an outbound execution or error notification.
type Report struct {
	Type         ReportType
	Symbol       string
	Side         common.Side
	Timestamp    time.Time
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Counterparty string
	Err          string
}

// Encode serializes a report for transmission to a connected client.
func (r Report) Encode() []byte {
	buf := []byte{byte(r.Type), byte(r.Side)}
	buf = appendUint64(buf, uint64(r.Timestamp.UnixNano()))
	buf = appendString(buf, r.Symbol)
	buf = appendString(buf, r.Quantity.String())
	buf = appendString(buf, decimalOrEmpty(r.Price))
	buf = appendString(buf, r.Counterparty)
	buf = appendString(buf, r.Err)
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.BigEndian.PutUint16(tmp, v)
	return append(buf, tmp...)
}

func appendUint64(buf []byte, v uint64) []byte {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, v)
	return append(buf, tmp...)
}

// appendString writes a 1-byte length prefix followed by s. Fields carried
// over this protocol (symbols, decimal strings, owner names, UUIDs) never
// exceed 255 bytes.
func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 1 {
		return "", nil, ErrMessageTooShort
	}
	n := int(buf[0])
	buf = buf[1:]
	if len(buf) < n {
		return "", nil, ErrMessageTooShort
	}
	return string(buf[:n]), buf[n:], nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

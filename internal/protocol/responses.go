package protocol

import (
	"encoding/hex"
	"fmt"
	"time"
)

// ResponseBuilder provides functionality to create responses to bridge frames.
type ResponseBuilder struct {
	codec *FrameCodec
}

// NewResponseBuilder creates a new response builder instance.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		codec: NewFrameCodec(),
	}
}

// Response represents a response frame to be sent back to a bridge.
type Response struct {
	Command   uint8
	Serial    uint64
	Data      []byte
	Timestamp time.Time
}

// CreateAckResponse acknowledges a received frame by echoing its header
// with the ack flag set.
func (rb *ResponseBuilder) CreateAckResponse(frame *Frame) (*Response, error) {
	if frame == nil {
		return nil, fmt.Errorf("frame cannot be nil")
	}

	response := &Response{
		Command:   frame.Command | AckFlag,
		Serial:    frame.Serial,
		Timestamp: time.Now(),
	}

	data, err := rb.codec.Encode(&Frame{
		Serial:   frame.Serial,
		Command:  frame.Command | AckFlag,
		Fragment: frame.Fragment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build ack response: %w", err)
	}

	response.Data = data
	return response, nil
}

// ResponseHandler manages response logic and decision making.
type ResponseHandler struct {
	responseBuilder *ResponseBuilder
}

// NewResponseHandler creates a new response handler instance.
func NewResponseHandler() *ResponseHandler {
	return &ResponseHandler{
		responseBuilder: NewResponseBuilder(),
	}
}

// ProcessIncomingFrame determines if and how to respond to a received frame.
func (rh *ResponseHandler) ProcessIncomingFrame(frame *Frame) (*Response, error) {
	if frame == nil {
		return nil, fmt.Errorf("frame cannot be nil")
	}

	// Never answer a response frame.
	if frame.IsResponse() {
		return nil, nil
	}

	switch frame.Command {
	case CommandHeartbeat:
		return rh.responseBuilder.CreateAckResponse(frame)
	case CommandStatistics:
		// Only the final fragment is acknowledged. The ack confirms the
		// whole record so the bridge can stop retransmitting it.
		if frame.IsFinalFragment() {
			return rh.responseBuilder.CreateAckResponse(frame)
		}
		return nil, nil
	default:
		// For unknown commands, don't respond.
		return nil, nil
	}
}

// ResponseMetrics holds metrics about response generation.
type ResponseMetrics struct {
	TotalFrames        int64
	HeartbeatResponses int64
	StatisticsAcks     int64
	ErrorResponses     int64
	LastResponseTime   time.Time
}

// ResponseManager manages response generation with metrics.
type ResponseManager struct {
	handler *ResponseHandler
	metrics *ResponseMetrics
}

// NewResponseManager creates a new response manager instance.
func NewResponseManager() *ResponseManager {
	return &ResponseManager{
		handler: NewResponseHandler(),
		metrics: &ResponseMetrics{},
	}
}

// HandleIncomingFrame processes a received frame and generates the
// appropriate response.
func (rm *ResponseManager) HandleIncomingFrame(frame *Frame) (*Response, error) {
	response, err := rm.handler.ProcessIncomingFrame(frame)

	// Update metrics
	rm.metrics.LastResponseTime = time.Now()
	rm.metrics.TotalFrames++

	if err != nil {
		rm.metrics.ErrorResponses++
		return nil, err
	}

	if response != nil {
		switch frame.Command {
		case CommandHeartbeat:
			rm.metrics.HeartbeatResponses++
		case CommandStatistics:
			rm.metrics.StatisticsAcks++
		}
	}

	return response, nil
}

// GetMetrics returns current response metrics.
func (rm *ResponseManager) GetMetrics() ResponseMetrics {
	return *rm.metrics
}

// ResetMetrics resets all response metrics.
func (rm *ResponseManager) ResetMetrics() {
	rm.metrics = &ResponseMetrics{}
}

// ShouldRespond reports whether a frame warrants a response.
func (rm *ResponseManager) ShouldRespond(frame *Frame) bool {
	if frame == nil || frame.IsResponse() {
		return false
	}

	switch frame.Command {
	case CommandHeartbeat:
		return true
	case CommandStatistics:
		return frame.IsFinalFragment()
	default:
		return false
	}
}

// FormatResponse returns a hex representation of response data for logging.
func FormatResponse(response *Response) string {
	if response == nil || len(response.Data) == 0 {
		return ""
	}
	return hex.EncodeToString(response.Data)
}

// Package api exposes the alignment pipeline over gRPC (a hand-rolled
// JSON-coded bidirectional stream) and over a WebSocket, so a host
// application can drive Align/Realign/Resegment and receive progress
// events without linking against the pipeline directly.
package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quranalign/internal/align"
	"quranalign/internal/vadclean"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type sendFunc func(Message) error

type transportClient interface {
	Send(Message) error
	Close() error
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *wsClient) Close() error {
	return c.conn.Close()
}

type grpcClient struct {
	stream Alignment_StreamServer
	mu     sync.Mutex
}

func (c *grpcClient) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream.Send(&msg)
}

func (c *grpcClient) Close() error {
	return nil
}

// LoadAudioFunc decodes a file path into a mono float32 waveform at
// the pipeline's configured sample rate. cmd/alignserver supplies the
// concrete implementation; this package stays codec-agnostic.
type LoadAudioFunc func(path string) ([]float32, error)

// Server wires the align.Pipeline to the two transports above.
type Server struct {
	Pipeline  *align.Pipeline
	LoadAudio LoadAudioFunc
	Port      string
	Addr      string // gRPC listen address, see grpc_service.go

	// Defaults fill in any Message segmentation field the caller left
	// at its zero value.
	Defaults align.SegmentationParams

	clients map[transportClient]bool
	mu      sync.Mutex
}

func NewServer(pipeline *align.Pipeline, loadAudio LoadAudioFunc, port, grpcAddr string, defaults align.SegmentationParams) *Server {
	return &Server{
		Pipeline:  pipeline,
		LoadAudio: loadAudio,
		Port:      port,
		Addr:      grpcAddr,
		Defaults:  defaults,
		clients:   make(map[transportClient]bool),
	}
}

// Start launches the gRPC listener in the background and blocks
// serving the WebSocket endpoint on Port.
func (s *Server) Start() error {
	go s.startGRPCServer()

	http.HandleFunc("/ws", s.handleWebSocket)
	log.Printf("alignment service listening on HTTP :%s and gRPC %s", s.Port, s.Addr)
	return http.ListenAndServe(":"+s.Port, nil)
}

func (s *Server) addClient(c transportClient) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *Server) removeClient(c transportClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade:", err)
		return
	}

	client := &wsClient{conn: conn}
	s.addClient(client)
	defer s.removeClient(client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Println("Read:", err)
			break
		}
		s.processMessage(context.Background(), client.Send, msg)
	}
}

// Stream implements the gRPC bidirectional stream, mirroring the
// WebSocket handler's dispatch loop.
func (s *Server) Stream(stream Alignment_StreamServer) error {
	client := &grpcClient{stream: stream}
	s.addClient(client)
	defer s.removeClient(client)

	for {
		msg, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			log.Printf("gRPC recv error: %v", err)
			return err
		}
		if msg == nil {
			continue
		}
		s.processMessage(stream.Context(), client.Send, *msg)
	}
}

func (s *Server) processMessage(ctx context.Context, send sendFunc, msg Message) {
	runID := msg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	switch msg.Type {
	case TypeAlign:
		waveform, err := s.LoadAudio(msg.AudioPath)
		if err != nil {
			send(Message{Type: TypeError, RunID: runID, Error: err.Error()})
			return
		}
		s.runAndStream(ctx, send, runID, func() (*align.AlignmentReport, error) {
			return s.Pipeline.Align(ctx, waveform, s.segmentationParams(msg))
		})

	case TypeRealign:
		waveform, err := s.LoadAudio(msg.AudioPath)
		if err != nil {
			send(Message{Type: TypeError, RunID: runID, Error: err.Error()})
			return
		}
		intervals := make([]vadclean.Interval, len(msg.Intervals))
		for i, iv := range msg.Intervals {
			intervals[i] = vadclean.Interval{StartS: iv.StartS, EndS: iv.EndS}
		}
		s.runAndStream(ctx, send, runID, func() (*align.AlignmentReport, error) {
			return s.Pipeline.Realign(ctx, waveform, intervals, msg.AsrModel)
		})

	case TypeResegment:
		waveform, err := s.LoadAudio(msg.AudioPath)
		if err != nil {
			send(Message{Type: TypeError, RunID: runID, Error: err.Error()})
			return
		}
		raw := make([]vadclean.RawInterval, len(msg.RawVAD))
		for i, iv := range msg.RawVAD {
			raw[i] = vadclean.RawInterval{StartSample: iv.StartSample, EndSample: iv.EndSample, IsComplete: iv.IsComplete}
		}
		s.runAndStream(ctx, send, runID, func() (*align.AlignmentReport, error) {
			return s.Pipeline.Resegment(ctx, raw, waveform, s.segmentationParams(msg))
		})

	default:
		send(Message{Type: TypeError, RunID: runID, Error: "unknown message type: " + msg.Type})
	}
}

func (s *Server) segmentationParams(msg Message) align.SegmentationParams {
	sp := s.Defaults
	if msg.MinSilenceMs != 0 {
		sp.MinSilenceMs = msg.MinSilenceMs
	}
	if msg.MinSpeechMs != 0 {
		sp.MinSpeechMs = msg.MinSpeechMs
	}
	if msg.PadMs != 0 {
		sp.PadMs = msg.PadMs
	}
	if msg.AsrModel != "" {
		sp.AsrModel = msg.AsrModel
	}
	return sp
}

// runAndStream executes run, then emits one progress event per
// emitted segment followed by the final report — the
// pipeline itself runs synchronously, so "streaming" here means the
// caller sees per-segment events as soon as the run completes rather
// than only the aggregate report.
func (s *Server) runAndStream(ctx context.Context, send sendFunc, runID string, run func() (*align.AlignmentReport, error)) {
	report, err := run()
	if err != nil {
		send(Message{Type: TypeError, RunID: runID, Error: err.Error()})
		return
	}
	for i, seg := range report.Segments {
		send(Message{Type: TypeProgress, RunID: runID, Progress: &ProgressEvent{
			Index:      i,
			StartTime:  seg.StartTime,
			EndTime:    seg.EndTime,
			MatchedRef: seg.MatchedRef,
			Confidence: seg.Confidence,
		}})
	}
	send(Message{Type: TypeReport, RunID: runID, Report: report})
}

package api

import (
	"errors"
	"log"
	"net"
	"os"
	"runtime"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// This file is the hand-rolled grpc.ServiceDesc/ServerStream plumbing
// the teacher generates for its own single-stream control service —
// the same shape protoc-gen-go-grpc would emit for a `service { rpc
// Stream(stream Message) returns (stream Message) }` pair, kept
// hand-written here as the teacher does to avoid a protoc step. There
// is no domain logic to adapt: a bidirectional streaming RPC's
// register/dispatch wiring is the same regardless of what Message
// carries, so only the service/method names change from the
// teacher's `aiwisper.Control`/`ControlServer`.

// AlignmentServer is the bidirectional stream a client opens to drive
// Align/Realign/Resegment and receive progress events plus the final
// report, one Message at a time.
type AlignmentServer interface {
	Stream(Alignment_StreamServer) error
}

type UnimplementedAlignmentServer struct{}

func (UnimplementedAlignmentServer) Stream(Alignment_StreamServer) error {
	return status.Errorf(codes.Unimplemented, "method Stream not implemented")
}

type Alignment_StreamServer interface {
	Send(*Message) error
	Recv() (*Message, error)
	grpc.ServerStream
}

type alignmentStreamServer struct {
	grpc.ServerStream
}

func (x *alignmentStreamServer) Send(m *Message) error {
	return x.ServerStream.SendMsg(m)
}

func (x *alignmentStreamServer) Recv() (*Message, error) {
	m := new(Message)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Alignment_Stream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(AlignmentServer).Stream(&alignmentStreamServer{stream})
}

var _Alignment_serviceDesc = grpc.ServiceDesc{
	ServiceName: "quranalign.Alignment",
	HandlerType: (*AlignmentServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       _Alignment_Stream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "internal/api/alignment.proto",
}

func RegisterAlignmentServer(s *grpc.Server, srv AlignmentServer) {
	s.RegisterService(&_Alignment_serviceDesc, srv)
}

func (s *Server) startGRPCServer() {
	addr := s.Addr
	if addr == "" {
		if runtime.GOOS == "windows" {
			addr = "npipe:\\\\.\\pipe\\quranalign-grpc"
		} else {
			addr = "unix:///tmp/quranalign-grpc.sock"
		}
	}

	lis, err := listenGRPC(addr)
	if err != nil {
		log.Printf("Failed to start gRPC listener (%s): %v", addr, err)
		return
	}

	server := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(jsonCodec{}),
	)
	RegisterAlignmentServer(server, s)

	log.Printf("gRPC listening on %s", addr)
	if err := server.Serve(lis); err != nil {
		log.Printf("gRPC server stopped: %v", err)
	}
}

func listenGRPC(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		socketPath := strings.TrimPrefix(addr, "unix:")
		if err := removeIfExists(socketPath); err != nil {
			return nil, err
		}
		return net.Listen("unix", socketPath)
	case strings.HasPrefix(addr, "npipe:"):
		pipePath := strings.TrimPrefix(addr, "npipe:")
		return listenPipe(pipePath)
	default:
		return net.Listen("tcp", addr)
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return errors.New("empty socket path")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

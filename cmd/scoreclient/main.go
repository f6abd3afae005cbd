package main

import (
	"context"
	"flag"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "voxguardian/internal/api/grpc"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	transcript := flag.String("transcript", "help there is a fire and someone is unconscious", "Transcript to score")
	ratio := flag.Float64("ratio", 0.15, "Compression ratio reported by the transcriber")
	duration := flag.Float64("duration", 4, "Call duration in seconds")
	quick := flag.Bool("quick", false, "Use the keyword-only classifier")
	flag.Parse()

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	method := grpcapi.MethodScoreCall
	fields := map[string]any{
		"transcript":        *transcript,
		"compression_ratio": *ratio,
		"duration_seconds":  *duration,
	}
	if *quick {
		method = grpcapi.MethodQuickClassify
		fields = map[string]any{"transcript": *transcript}
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, req, out); err != nil {
		log.Fatalf("%s failed: %v", method, err)
	}

	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(out)
	if err != nil {
		log.Fatalf("failed to render response: %v", err)
	}
	log.Printf("%s response:\n%s", method, b)
}

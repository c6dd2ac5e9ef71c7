// Visit Event Viewer streams clinical visit lifecycle events from Kafka to a
// browser over WebSocket.
package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

func consumeKafka(ctx context.Context, hub *Hub, brokers []string, topic string, since time.Duration) {
	// Partition reader without a consumer group; works through port-forwards
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Printf("Could not seek %s: %v", topic, err)
	}
	log.Printf("Consuming from Kafka topic: %s partition 0 (last %s)", topic, since)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		event, err := decodeEvent(topic, msg.Value)
		if err != nil {
			log.Printf("JSON unmarshal error on %s: %v", topic, err)
			continue
		}

		log.Printf("Received %s visit=%s: %s", event.EventType, event.VisitID, event.Summary())
		select {
		case hub.broadcast <- event:
		case <-ctx.Done():
			return
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topics := flag.String("topics", "visit.transcription.completed,visit.report.completed", "Lifecycle topics (comma-separated)")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	flag.Parse()

	hub := newHub()
	go hub.run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brokerList := splitList(*brokers)
	topicList := splitList(*topics)
	for _, topic := range topicList {
		go consumeKafka(ctx, hub, brokerList, topic, *since)
	}

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("static files: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", wsHandler(hub))

	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Visit Event Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", strings.Join(brokerList, ","))
	log.Printf("   Topics: %s", strings.Join(topicList, ", "))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

func receiveMessage(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case message := <-client.send:
		return message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub message")
		return Message{}
	}
}

func expectNoMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case message := <-client.send:
		t.Fatalf("unexpected message: %+v", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	hub := NewHub(logger.New("error"))
	go hub.Run()

	client := NewClient(hub, nil, logger.New("error"))
	hub.Register(client)

	hub.OnCycleResult(context.Background(), validation.CycleResult{ID: "cycle-1"})

	message := receiveMessage(t, client)
	if message.Type != "validation_result" {
		t.Errorf("expected validation_result message, got %q", message.Type)
	}
	result, ok := message.Data.(validation.CycleResult)
	if !ok || result.ID != "cycle-1" {
		t.Errorf("unexpected message payload: %+v", message.Data)
	}
}

func TestHubReplaysLatestToNewClient(t *testing.T) {
	hub := NewHub(logger.New("error"))
	go hub.Run()

	first := NewClient(hub, nil, logger.New("error"))
	hub.Register(first)

	hub.OnCycleResult(context.Background(), validation.CycleResult{ID: "cycle-1"})
	receiveMessage(t, first)

	// Клиент, подключившийся после цикла, получает последний результат сразу
	late := NewClient(hub, nil, logger.New("error"))
	hub.Register(late)

	message := receiveMessage(t, late)
	result, ok := message.Data.(validation.CycleResult)
	if !ok || result.ID != "cycle-1" {
		t.Errorf("expected replay of cycle-1, got %+v", message.Data)
	}
}

func TestHubSendLatest(t *testing.T) {
	hub := NewHub(logger.New("error"))
	go hub.Run()

	client := NewClient(hub, nil, logger.New("error"))
	hub.Register(client)

	// До первого цикла запрос остается без ответа
	hub.SendLatest(client)
	expectNoMessage(t, client)

	hub.OnCycleResult(context.Background(), validation.CycleResult{ID: "cycle-2"})
	receiveMessage(t, client)

	hub.SendLatest(client)
	message := receiveMessage(t, client)
	result, ok := message.Data.(validation.CycleResult)
	if !ok || result.ID != "cycle-2" {
		t.Errorf("expected cycle-2 on request, got %+v", message.Data)
	}
}

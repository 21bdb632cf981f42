package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizzz-service/internal/app"
	"github.com/gorilla/websocket"
)

var (
	errUnsupportedMessage = errors.New("unsupported message type")
	errNoDraftQuiz        = errors.New("no quiz in draft to save")
)

// WSHandler runs interactive draft-editing sessions over a websocket: the
// client sends edit operations, the server pushes draft snapshots after every
// mutation.
type WSHandler struct {
	service   *app.QuizService
	generator app.QuizGenerator
	upgrader  websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, generator app.QuizGenerator) *WSHandler {
	return &WSHandler{
		service:   service,
		generator: generator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type promptPayload struct {
	Prompt string `json:"prompt"`
}

type textPayload struct {
	Text string `json:"text"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type limitTimePayload struct {
	Seconds *int `json:"seconds"`
}

type questionEditPayload struct {
	QuestionID string `json:"questionId"`
	Key        string `json:"key,omitempty"`
	Text       string `json:"text,omitempty"`
}

type reorderPayload struct {
	Index     int    `json:"index"`
	Direction string `json:"direction"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Key        string `json:"key"`
}

type loadQuizPayload struct {
	QuizID string `json:"quizId"`
}

// ServeWS upgrades the connection and wires it into the owner's draft.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	draft := h.service.Drafts().GetOrCreate(userID)

	updates, cancel := draft.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine so the snapshot fan-out and op replies never
	// write to the connection concurrently.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "draft", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), userID, draft, inbound, send); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, userID string, draft *app.Draft, inbound inboundMessage, send chan<- outboundMessage[any]) error {
	switch inbound.Type {
	case "setPrompt":
		var p promptPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.SetPrompt(p.Prompt)
	case "generate":
		// Generation is the one long-running op; run it off the read loop so
		// the client can keep navigating. The in-flight guard serializes.
		go func() {
			if err := draft.Generate(context.WithoutCancel(ctx), h.generator); err != nil {
				log.Printf("generate for %s: %v", userID, err)
			}
		}()
	case "loadQuiz":
		var p loadQuizPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		quiz, err := h.service.GetQuiz(ctx, p.QuizID)
		if err != nil {
			return err
		}
		draft.SetQuiz(quiz)
	case "toggleEdit":
		draft.ToggleEditMode()
	case "setTitle":
		var p textPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.SetTitle(p.Text)
	case "setDescription":
		var p textPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.SetDescription(p.Text)
	case "setStatus":
		var p statusPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return draft.SetStatus(p.Status)
	case "setLimitTime":
		var p limitTimePayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.SetLimitTime(p.Seconds)
	case "setQuestionText":
		var p questionEditPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return draft.SetQuestionText(p.QuestionID, p.Text)
	case "setOption":
		var p questionEditPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return draft.SetOption(p.QuestionID, p.Key, p.Text)
	case "setCorrectAnswer":
		var p questionEditPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return draft.SetCorrectAnswer(p.QuestionID, p.Key)
	case "setExplanation":
		var p questionEditPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return draft.SetExplanation(p.QuestionID, p.Text)
	case "addQuestion":
		if _, err := draft.AddQuestion(); err != nil {
			return err
		}
	case "deleteQuestion":
		var p questionEditPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.DeleteQuestion(p.QuestionID)
	case "reorderQuestion":
		var p reorderPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.ReorderQuestion(p.Index, p.Direction)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		draft.AnswerQuestion(p.QuestionID, p.Key)
	case "next":
		draft.NextQuestion()
	case "prev":
		draft.PreviousQuestion()
	case "resetProgress":
		draft.ResetProgress()
	case "score":
		send <- outboundMessage[any]{Type: "score", Payload: draft.Score()}
	case "saveChanges":
		draft.SaveChanges()
	case "saveQuiz":
		view := draft.View()
		if view.Quiz == nil {
			return errNoDraftQuiz
		}
		saved, err := h.service.SaveQuiz(ctx, userID, *view.Quiz)
		if err != nil {
			// The draft stays intact; the client may retry the save.
			return err
		}
		draft.SetQuiz(saved)
		send <- outboundMessage[any]{Type: "saved", Payload: saved}
	default:
		return errUnsupportedMessage
	}
	return nil
}

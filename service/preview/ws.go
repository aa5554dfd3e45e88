package preview

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/lgr"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type wsClient struct {
	conn   *websocket.Conn
	frames chan []byte
}

type wsService struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	server  *http.Server
}

// NewWS serves ws://host:port/preview/{location} and broadcasts JPEG frames
// to every connected viewer. Viewers that cannot keep up have frames dropped,
// never buffered unboundedly.
func NewWS(cfgSvc config.IService) IService {
	svc := &wsService{
		clients: map[*wsClient]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/preview/", svc.handleViewer)

	svc.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfgSvc.GetPreviewPort()),
		Handler: mux,
	}

	go func() {
		if err := svc.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Logger.Error(
				"preview server exited",
				slog.Any("error", err),
			)
		}
	}()

	return svc
}

func (svc *wsService) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		lgr.Logger.Warn(
			"preview upgrade failed",
			slog.Any("error", err),
		)
		return
	}

	client := &wsClient{
		conn:   conn,
		frames: make(chan []byte, 4),
	}

	svc.mu.Lock()
	svc.clients[client] = true
	svc.mu.Unlock()

	go svc.writeLoop(client)
}

func (svc *wsService) writeLoop(client *wsClient) {
	defer func() {
		svc.mu.Lock()
		delete(svc.clients, client)
		svc.mu.Unlock()
		client.conn.Close()
	}()

	for frame := range client.frames {
		if err := client.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
	}
}

func (svc *wsService) Publish(camera model.Camera, frame gocv.Mat) {
	svc.mu.Lock()
	hasViewers := len(svc.clients) > 0
	svc.mu.Unlock()
	if !hasViewers {
		return
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		lgr.Logger.Warn(
			"preview frame encode failed",
			slog.String("camera", camera.Location),
			slog.Any("error", err),
		)
		return
	}
	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())
	buf.Close()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for client := range svc.clients {
		select {
		case client.frames <- jpeg:
		default:
			// Viewer is behind, drop the frame
		}
	}
}

func (svc *wsService) Finalize() {
	svc.mu.Lock()
	for client := range svc.clients {
		close(client.frames)
	}
	svc.clients = map[*wsClient]bool{}
	svc.mu.Unlock()

	_ = svc.server.Close()
}

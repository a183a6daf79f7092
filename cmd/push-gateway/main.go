package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"codepay/internal/pkg/bootstrap"
	"codepay/internal/pkg/logger"
	"codepay/internal/pkg/mq"
)

// push-gateway 把 Kafka 上的支付成功事件实时推送给商户后台页面。
// 每个页面通过 /ws 建立一条 WebSocket 连接，收到的事件原样广播给所有连接。

var (
	nodeID   = "push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub 维护所有活跃的连接，并负责消息广播
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case client := <-h.register:
			h.clients[client] = struct{}{}
			log.Printf("client %s registered on node %s", client.id, nodeID)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			log.Printf("client %s unregistered", client.id)
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写缓冲已满说明客户端长时间不读，直接踢掉
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// 客户端只发心跳，消息内容直接丢弃
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), id: uuid.New().String()[:8]}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeNotifications 消费支付成功事件并交给 Hub 广播
func consumeNotifications(ctx context.Context, hub *Hub, brokers []string, topic string) error {
	reader := mq.NewKafkaReader(brokers, topic, "push-gateway")
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		msgCtx := mq.ExtractContext(ctx, &msg)
		logger.Ctx(msgCtx).Info().
			Str("key", string(msg.Key)).
			Msg("broadcasting payment notification")
		hub.broadcast <- msg.Value
	}
}

func main() {
	bootstrap.Init()
	logger.Init("push-gateway")
	cfg := bootstrap.GetCurrentConfig()

	hub := newHub()
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return hub.run(ctx) })
	g.Go(func() error {
		return consumeNotifications(ctx, hub,
			strings.Split(cfg.Infra.Kafka.Brokers, ","), cfg.Infra.Kafka.NotificationTopic)
	})

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	log.Printf("Push Gateway (%s) started on :8088", nodeID)
	g.Go(func() error { return http.ListenAndServe(":8088", nil) })
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

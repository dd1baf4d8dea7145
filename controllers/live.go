package controllers

import (
	"context"
	"log"
	"net/http"

	"tryonstudio/models"
	"tryonstudio/store"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type LiveMessage struct {
	Collection store.Collection `json:"collection"`
	Items      interface{}      `json:"items,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type LiveController struct {
	Store *store.EntityStore
}

func (controller *LiveController) LiveRoutes(g *echo.Group) {
	g.GET("/:collection", controller.Stream)
}

// watch starts a live query over col, sending every snapshot to publish.
func (controller *LiveController) watch(ctx context.Context, col store.Collection, publish func(LiveMessage)) func() {
	send := func(items interface{}, err error) {
		msg := LiveMessage{Collection: col, Items: items}
		if err != nil {
			log.Printf("[Live] %s query failed: %v", col, err)
			msg = LiveMessage{Collection: col, Error: "query failed"}
		}
		publish(msg)
	}
	switch col {
	case store.WardrobeItems:
		return store.Live(ctx, controller.Store, col, controller.Store.ListWardrobeItems, func(items []models.WardrobeItem, err error) {
			send(displays(items), err)
		})
	case store.ProfilePhotos:
		return store.Live(ctx, controller.Store, col, controller.Store.ListProfilePhotos, func(photos []models.ProfilePhoto, err error) {
			send(photos, err)
		})
	default:
		return store.Live(ctx, controller.Store, col, controller.Store.ListCompositions, func(compositions []models.Composition, err error) {
			send(compositions, err)
		})
	}
}

// Stream pushes the full newest-first list of a collection on connect and
// after every commit to it. Only the latest pending snapshot is kept for a
// slow reader.
func (controller *LiveController) Stream(c echo.Context) error {
	col := store.Collection(c.Param("collection"))
	if !col.Valid() {
		return echo.NewHTTPError(http.StatusNotFound, "unknown collection")
	}
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	latest := make(chan LiveMessage, 1)
	stop := controller.watch(ctx, col, func(msg LiveMessage) {
		select {
		case <-latest:
		default:
		}
		latest <- msg
	})
	defer stop()

	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-latest:
			if err := ws.WriteJSON(msg); err != nil {
				log.Printf("[Live] %s write failed: %v", col, err)
				return nil
			}
		}
	}
}

package resource_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supervisorapp/supervisor-client/internal/credentials"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

func TestResource(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resource Suite")
}

type operator struct {
	ID  int64  `json:"id"`
	Nom string `json:"nom"`
}

func (o operator) EntityID() int64 { return o.ID }

type captureNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (c *captureNotifier) Notify(n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, n)
}

func (c *captureNotifier) Last() (notify.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.notifications) == 0 {
		return notify.Notification{}, false
	}
	return c.notifications[len(c.notifications)-1], true
}

// operatorBackend is an in-memory collection behind the usual REST
// conventions, enough to drive the store through full round trips.
type operatorBackend struct {
	router *chi.Mux

	mu        sync.Mutex
	operators []operator
	nextID    int64

	envelope   bool
	failCreate bool
}

func newOperatorBackend(seed ...operator) *operatorBackend {
	b := &operatorBackend{router: chi.NewRouter(), nextID: 100}
	b.operators = append(b.operators, seed...)

	b.router.Get("/operators/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.envelope {
			json.NewEncoder(w).Encode(map[string]any{
				"results": b.operators,
				"count":   57,
			})
			return
		}
		json.NewEncoder(w).Encode(b.operators)
	})

	b.router.Get("/operators/active/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.operators[:1])
	})

	b.router.Post("/operators/", func(w http.ResponseWriter, r *http.Request) {
		if b.failCreate {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"nom deja utilise"}`))
			return
		}
		var in operator
		json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		in.ID = b.nextID
		b.nextID++
		b.operators = append(b.operators, in)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	})

	b.router.Get("/operators/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, op := range b.operators {
			if op.ID == id {
				json.NewEncoder(w).Encode(op)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found."}`))
	})

	b.router.Put("/operators/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		var in operator
		json.NewDecoder(r.Body).Decode(&in)
		in.ID = id
		b.mu.Lock()
		for i := range b.operators {
			if b.operators[i].ID == id {
				b.operators[i] = in
			}
		}
		b.mu.Unlock()
		json.NewEncoder(w).Encode(in)
	})

	b.router.Delete("/operators/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		b.mu.Lock()
		for i := range b.operators {
			if b.operators[i].ID == id {
				b.operators = append(b.operators[:i], b.operators[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return b
}

var _ = Describe("Store", func() {
	var (
		backend  *operatorBackend
		server   *httptest.Server
		notifier *captureNotifier
		store    *resource.Store[operator]
	)

	BeforeEach(func() {
		backend = newOperatorBackend(
			operator{ID: 1, Nom: "orange"},
			operator{ID: 2, Nom: "mtn"},
			operator{ID: 3, Nom: "moov"},
		)
		server = httptest.NewServer(backend.router)
		DeferCleanup(server.Close)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		notifier = &captureNotifier{}

		client, err := transport.New(transport.Config{
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
		}, credentials.NewMemoryStore(), notifier, notify.NopNavigator{}, logger)
		Expect(err).NotTo(HaveOccurred())

		store = resource.NewStore(
			resource.NewEndpoints[operator](client, "/operators/"),
			"operator", notifier, logger)
	})

	Describe("List", func() {
		It("replaces items from a bare array response", func() {
			items, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(3))
			Expect(items[0].Nom).To(Equal("orange"))
			Expect(store.Pagination().TotalCount).To(BeZero())
		})

		It("reads the total from a paginated envelope", func() {
			backend.envelope = true

			items, err := store.List(context.Background(), transport.Params{
				"page": 2, "page_size": 3,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(3))

			p := store.Pagination()
			Expect(p.TotalCount).To(Equal(57))
			Expect(p.Page).To(Equal(2))
			Expect(p.PageSize).To(Equal(3))
		})

		It("loads from a custom collection action", func() {
			items, err := store.ListFrom(context.Background(), "active", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
		})
	})

	Describe("Create", func() {
		It("appends the server-assigned entity, preserving order", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			created, err := store.Create(context.Background(), map[string]string{"nom": "telecel"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(100)))

			items := store.Items()
			Expect(items).To(HaveLen(4))
			Expect(items[3].Nom).To(Equal("telecel"))

			last, ok := notifier.Last()
			Expect(ok).To(BeTrue())
			Expect(last.Severity).To(Equal(notify.SeverityPositive))
		})

		It("leaves items untouched and surfaces the server message on failure", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			backend.failCreate = true
			_, err = store.Create(context.Background(), map[string]string{"nom": "orange"})
			Expect(err).To(HaveOccurred())

			Expect(store.Items()).To(HaveLen(3))
			Expect(store.Err()).To(Equal("nom deja utilise"))
			Expect(store.Loading()).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("replaces only the matching item", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			updated, err := store.Update(context.Background(), 2, map[string]string{"nom": "mtn-ci"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Nom).To(Equal("mtn-ci"))

			items := store.Items()
			Expect(items[0].Nom).To(Equal("orange"))
			Expect(items[1].Nom).To(Equal("mtn-ci"))
			Expect(items[2].Nom).To(Equal("moov"))
		})

		It("refreshes the selection when it is the updated entity", func() {
			_, err := store.Get(context.Background(), 2)
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Update(context.Background(), 2, map[string]string{"nom": "mtn-ci"})
			Expect(err).NotTo(HaveOccurred())

			selected, ok := store.Selected()
			Expect(ok).To(BeTrue())
			Expect(selected.Nom).To(Equal("mtn-ci"))
		})
	})

	Describe("Delete", func() {
		It("removes exactly the deleted entity", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Delete(context.Background(), 2)).To(Succeed())

			items := store.Items()
			Expect(items).To(HaveLen(2))
			Expect(items[0].ID).To(Equal(int64(1)))
			Expect(items[1].ID).To(Equal(int64(3)))
		})

		It("clears the selection when the selected entity is deleted", func() {
			_, err := store.Get(context.Background(), 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Delete(context.Background(), 2)).To(Succeed())

			_, ok := store.Selected()
			Expect(ok).To(BeFalse())
		})

		It("keeps items when the remote delete fails", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			err = store.Delete(context.Background(), 99)
			Expect(err).To(HaveOccurred())
			Expect(store.Items()).To(HaveLen(3))
		})
	})

	Describe("local state", func() {
		It("finds items by id without the network", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			op, ok := store.FindByID(3)
			Expect(ok).To(BeTrue())
			Expect(op.Nom).To(Equal("moov"))

			_, ok = store.FindByID(42)
			Expect(ok).To(BeFalse())
		})

		It("absorbs an entity returned by a custom action", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			store.Absorb(operator{ID: 1, Nom: "orange-ci"})

			op, ok := store.FindByID(1)
			Expect(ok).To(BeTrue())
			Expect(op.Nom).To(Equal("orange-ci"))
		})

		It("returns to the initial state on Reset", func() {
			_, err := store.List(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			store.Select(operator{ID: 1, Nom: "orange"})

			store.Reset()

			Expect(store.Items()).To(BeEmpty())
			_, ok := store.Selected()
			Expect(ok).To(BeFalse())
			Expect(store.Err()).To(BeEmpty())
			Expect(store.Pagination()).To(Equal(resource.Pagination{}))
		})
	})
})

var _ = Describe("Endpoints", func() {
	It("builds member and action paths the backend expects", func() {
		var paths []string
		var mu sync.Mutex
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
			mu.Unlock()
			w.Write([]byte(`{}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		client, err := transport.New(transport.Config{
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
		}, credentials.NewMemoryStore(), &captureNotifier{}, notify.NopNavigator{}, logger)
		Expect(err).NotTo(HaveOccurred())

		endpoints := resource.NewEndpoints[operator](client, "/operators/")
		ctx := context.Background()

		_, err = endpoints.Get(ctx, 7)
		Expect(err).NotTo(HaveOccurred())
		_, err = endpoints.MemberAction(ctx, 7, "activate", struct{}{})
		Expect(err).NotTo(HaveOccurred())
		_, err = endpoints.CollectionAction(ctx, "statistics", nil, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(paths).To(Equal([]string{
			"GET /operators/7/",
			"POST /operators/7/activate/",
			"GET /operators/statistics/",
		}))
	})
})

package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/storage"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type recordedCall struct {
	method      string
	path        string
	contentType string
	apiKey      string
	body        []byte
}

type fakeObjectStore struct {
	mu     sync.Mutex
	calls  []recordedCall
	status int
}

func (f *fakeObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		method:      r.Method,
		path:        r.URL.EscapedPath(),
		contentType: r.Header.Get("Content-Type"),
		apiKey:      r.Header.Get("apikey"),
		body:        body,
	})
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"statusCode":"403","message":"new row violates row-level security policy"}`))
		return
	}
	if strings.HasPrefix(r.URL.Path, "/storage/v1/object/sign/") {
		_, _ = w.Write([]byte(`{"signedURL":"/object/sign/audit-files/emp-1/1717200000000_receipt.png?token=abc"}`))
		return
	}
	_, _ = w.Write([]byte(`{"Key":"audit-files/emp-1/1717200000000_receipt.png"}`))
}

var _ = Describe("Object paths", func() {
	It("prefixes the uploader and a millisecond timestamp", func() {
		at := time.UnixMilli(1717200000000)
		Expect(storage.BuildPath("emp-1", "Taxi receipt (June).PDF", at)).To(Equal("emp-1/1717200000000_Taxi_receipt__June_.PDF"))
	})

	DescribeTable("sanitizes file names",
		func(in, out string) {
			Expect(storage.SanitizeFileName(in)).To(Equal(out))
		},
		Entry("plain", "invoice.pdf", "invoice.pdf"),
		Entry("unicode", "reçu café.png", "re_u_caf_.png"),
		Entry("directory parts", "../../etc/passwd", "passwd"),
		Entry("windows path", `C:\Users\eve\scan.jpg`, "scan.jpg"),
		Entry("empty stem", ".pdf", "file.pdf"),
	)

	It("only treats the uploader's own objects as owned", func() {
		Expect(storage.OwnedBy("emp-1/1717200000000_receipt.png", "emp-1")).To(BeTrue())
		Expect(storage.OwnedBy("emp-2/1717200000000_receipt.png", "emp-1")).To(BeFalse())
		Expect(storage.OwnedBy("emp-1/../emp-2/1_receipt.png", "emp-1")).To(BeFalse())
		Expect(storage.OwnedBy("emp-1/receipt.png", "emp-1")).To(BeFalse())
		Expect(storage.OwnedBy("emp-1/nested/1_receipt.png", "emp-1")).To(BeFalse())
	})

	It("strips the timestamp for display", func() {
		Expect(storage.DisplayName("emp-1/1717200000000_receipt.png")).To(Equal("receipt.png"))
		Expect(storage.DisplayName("legacy/receipt.png")).To(Equal("receipt.png"))
	})
})

var _ = Describe("Storage Client", func() {
	var (
		ctx    context.Context
		store  *fakeObjectStore
		server *httptest.Server
		cfg    internal.StorageConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &fakeObjectStore{}
		server = httptest.NewServer(store)
		DeferCleanup(server.Close)
		cfg = internal.StorageConfig{URL: server.URL, APIKey: "service-key", Bucket: "audit-files", SignedURLTTL: 10 * time.Minute}
	})

	It("uploads to the bucket path with the api key", func() {
		client := storage.NewClient(cfg, testLogger)

		Expect(client.Upload(ctx, "emp-1/1717200000000_receipt.png", strings.NewReader("png-bytes"), "image/png")).To(Succeed())

		Expect(store.calls).To(HaveLen(1))
		call := store.calls[0]
		Expect(call.method).To(Equal(http.MethodPost))
		Expect(call.path).To(Equal("/storage/v1/object/audit-files/emp-1/1717200000000_receipt.png"))
		Expect(call.contentType).To(Equal("image/png"))
		Expect(call.apiKey).To(Equal("service-key"))
		Expect(string(call.body)).To(Equal("png-bytes"))
	})

	It("reports storage rejections", func() {
		store.status = http.StatusForbidden
		client := storage.NewClient(cfg, testLogger)

		err := client.Upload(ctx, "emp-1/1_receipt.png", strings.NewReader("x"), "")
		Expect(err).To(MatchError(ContainSubstring("row-level security")))
	})

	It("builds public URLs without calling the store", func() {
		cfg.Public = true
		client := storage.NewClient(cfg, testLogger)

		u, err := client.URL(ctx, "emp-1/1717200000000_receipt.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(server.URL + "/storage/v1/object/public/audit-files/emp-1/1717200000000_receipt.png"))
		Expect(store.calls).To(BeEmpty())
	})

	It("signs URLs for private buckets", func() {
		client := storage.NewClient(cfg, testLogger)

		u, err := client.URL(ctx, "emp-1/1717200000000_receipt.png")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(server.URL + "/storage/v1/object/sign/audit-files/emp-1/1717200000000_receipt.png?token=abc"))

		Expect(store.calls).To(HaveLen(1))
		Expect(store.calls[0].path).To(Equal("/storage/v1/object/sign/audit-files/emp-1/1717200000000_receipt.png"))
		var body map[string]int
		Expect(json.Unmarshal(store.calls[0].body, &body)).To(Succeed())
		Expect(body["expiresIn"]).To(Equal(600))
	})
})

type memoryUploader struct {
	path        string
	contentType string
	data        []byte
}

func (m *memoryUploader) Upload(_ context.Context, objectPath string, data io.Reader, contentType string) error {
	m.path = objectPath
	m.contentType = contentType
	var err error
	m.data, err = io.ReadAll(data)
	return err
}

var _ = Describe("Upload Handler", func() {
	var (
		uploader *memoryUploader
		handler  *storage.Handler
		eve      identity.AuthContext
	)

	BeforeEach(func() {
		uploader = &memoryUploader{}
		handler = storage.NewHandler(&transport.BaseHandler{Logger: testLogger}, storage.NewService(uploader, testLogger), 1024)
		eve = identity.AuthContext{ProfileID: "emp-1", Role: identity.RoleEmployee, OrganizationID: "org-1"}
	})

	multipartRequest := func(field, fileName string, content []byte) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(field, fileName)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req.WithContext(identity.WithContext(req.Context(), eve))
	}

	It("stores the file under the caller's prefix", func() {
		w := httptest.NewRecorder()
		handler.Upload(w, multipartRequest("file", "hotel invoice.pdf", []byte("%PDF-1.4 test")))

		Expect(w.Code).To(Equal(http.StatusCreated))
		var uploaded storage.Uploaded
		Expect(json.NewDecoder(w.Body).Decode(&uploaded)).To(Succeed())
		Expect(uploaded.Path).To(HavePrefix("emp-1/"))
		Expect(uploaded.Path).To(HaveSuffix("_hotel_invoice.pdf"))
		Expect(uploaded.Name).To(Equal("hotel_invoice.pdf"))
		Expect(storage.OwnedBy(uploaded.Path, "emp-1")).To(BeTrue())
		Expect(string(uploader.data)).To(Equal("%PDF-1.4 test"))
	})

	It("rejects requests without a file part", func() {
		w := httptest.NewRecorder()
		handler.Upload(w, multipartRequest("other", "x.txt", []byte("x")))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects files over the size limit", func() {
		w := httptest.NewRecorder()
		handler.Upload(w, multipartRequest("file", "big.bin", bytes.Repeat([]byte("a"), 4096)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

package deps

import (
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/bookmarks"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/scheduler"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time     // for testing, defaults to time.Now
	AllowedHosts []string             // Host headers allowed to access the server
	AllowedCIDRS []string             // IPs allowed to access the server
	TrustProxy   bool                 // true if running behind a trusted reverse proxy
	RateBurst    int                  // mutation burst per client IP
	RatePerMin   int                  // mutation refill per client IP and minute
	Store        store.Conn           // durable bookmark store
	BusTransport string               // file | redis | local
	Bookmarks    *bookmarks.Service   // bookmark CRUD
	Refresher    *scheduler.Refresher // presentation state
}

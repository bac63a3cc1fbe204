package catalog

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/solarisips/pkgclient/pkg/transport"
)

// Client is the long-lived per-publisher catalog handle: a Store plus the
// structured logger every long-lived type in this module carries. Refresh
// stays a free function (it's already fully parameterized and easy to
// test in isolation); Client wraps it with logging so callers driving
// several publishers don't have to repeat the boilerplate themselves.
type Client struct {
	Publisher string
	Store     *Store
	Fetcher   PartFetcher
	Origins   []transport.Origin
	log       logrus.FieldLogger
}

// NewClient constructs a Client. log may be nil (defaults to the standard
// logrus logger).
func NewClient(publisher string, store *Store, fetcher PartFetcher, origins []transport.Origin, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{Publisher: publisher, Store: store, Fetcher: fetcher, Origins: origins, log: log}
}

// Refresh runs the client-side refresh protocol for this publisher,
// logging the outcome at a level matching its severity.
func (c *Client) Refresh(ctx context.Context) (Result, error) {
	res, err := Refresh(ctx, c.Store, c.Fetcher, c.Origins, c.Publisher)
	entry := c.log.WithField("publisher", c.Publisher)
	if err != nil {
		entry.WithError(err).Warn("catalog: refresh failed")
		return res, err
	}
	entry.WithField("outcome", res.Outcome).Info("catalog: refresh complete")
	return res, nil
}

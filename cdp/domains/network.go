package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpn "github.com/chromedp/cdproto/network"
)

// Network exposes the CDP Network domain cookie actions.
type Network interface {
	GetCookies(ctx context.Context) ([]*cdpn.Cookie, error)
	DeleteCookie(ctx context.Context, name, url string) error
}

var _ Network = &network{}

type network struct {
	exec cdp.Executor
}

// NewNetwork returns a new CDP Network domain wrapper.
func NewNetwork(exec cdp.Executor) Network {
	return &network{exec}
}

// GetCookies returns the cookies visible to the page of the session.
func (n *network) GetCookies(ctx context.Context) ([]*cdpn.Cookie, error) {
	cookies, err := cdpn.GetCookies().Do(cdp.WithExecutor(ctx, n.exec))
	if err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}

	return cookies, nil
}

func (n *network) DeleteCookie(ctx context.Context, name, url string) error {
	action := cdpn.DeleteCookies(name).WithURL(url)
	if err := action.Do(cdp.WithExecutor(ctx, n.exec)); err != nil {
		return fmt.Errorf("deleting cookie %q: %w", name, err)
	}

	return nil
}

// Package client drives the ATM terminal: it renders the server's menus in
// the active language, prompts for input and keeps the text catalog current.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"atm-gateway/internal/catalog"
	"atm-gateway/internal/core/ports"
	"atm-gateway/internal/protocol"
	"atm-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// DefaultLanguage is used when Options.Language is empty.
const DefaultLanguage = "English"

const separator = "-------------"

// ErrDisconnected is returned by RunOnce after the driver has stopped.
var ErrDisconnected = errors.New("client disconnected")

// State tags one frame of the client state stack.
type State int

const (
	StateRequestMenu State = iota
	StateRecvMenuNumItems
	StateRecvMenuItems
	StateShowMenu
	StateShowAction
	StateChangeLanguage
)

var stateNames = [...]string{
	StateRequestMenu:      "REQUEST_MENU",
	StateRecvMenuNumItems: "RECV_MENU_NUM_ITEMS",
	StateRecvMenuItems:    "RECV_MENU_ITEMS",
	StateShowMenu:         "SHOW_MENU",
	StateShowAction:       "SHOW_ACTION",
	StateChangeLanguage:   "CHANGE_LANGUAGE",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type frame struct {
	state     State
	remaining int               // RECV_MENU_ITEMS
	item      protocol.MenuItem // SHOW_ACTION
}

// Options configures a Client. Zero values select stdin, stdout and DefaultLanguage.
type Options struct {
	Language string
	Input    io.Reader
	Output   io.Writer
}

// Client is a single-threaded protocol driver for one server connection.
type Client struct {
	r *protocol.Reader
	w *protocol.Writer

	catalogs    ports.CatalogRepository
	catalog     *catalog.Collection
	lang        string
	defaultLang string

	stack     []frame
	items     []protocol.MenuItem
	txn       uint16
	connected bool

	in  *Prompter
	out io.Writer
	log zerolog.Logger
}

// New creates a client on conn. The local catalog is read from catalogs; when
// it cannot be read the client starts with an empty catalog at version 0 and
// the first update check fetches the server's.
func New(ctx context.Context, conn io.ReadWriter, catalogs ports.CatalogRepository, opts Options, log zerolog.Logger) *Client {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	c, err := catalogs.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("local catalog unavailable, starting empty")
		c, _ = catalog.New(0, nil, nil)
	}

	return &Client{
		r:           protocol.NewReader(conn),
		w:           protocol.NewWriter(conn),
		catalogs:    catalogs,
		catalog:     c,
		lang:        opts.Language,
		defaultLang: DefaultLanguage,
		stack:       []frame{{state: StateRequestMenu}},
		connected:   true,
		in:          NewPrompter(opts.Input),
		out:         opts.Output,
		log:         log,
	}
}

// Connected reports whether the driver is still running.
func (c *Client) Connected() bool { return c.connected }

// State returns the state on top of the stack.
func (c *Client) State() State { return c.top().state }

// Language returns the active language name.
func (c *Client) Language() string { return c.lang }

// Catalog returns the active catalog.
func (c *Client) Catalog() *catalog.Collection { return c.catalog }

// TxnID returns the id of the most recent ACTION.
func (c *Client) TxnID() uint16 { return c.txn }

// Run steps the driver until it disconnects. End of terminal input is a
// normal exit.
func (c *Client) Run(ctx context.Context) error {
	for c.connected {
		if err := c.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrInputClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// RunOnce executes the state on top of the stack. Any error stops the driver.
func (c *Client) RunOnce(ctx context.Context) error {
	if !c.connected {
		return ErrDisconnected
	}
	if err := c.step(ctx); err != nil {
		c.connected = false
		return err
	}
	return nil
}

func (c *Client) step(ctx context.Context) error {
	switch f := c.top(); f.state {
	case StateRequestMenu:
		if err := c.checkUpdate(ctx); err != nil {
			return err
		}
		c.items = c.items[:0]
		c.push(frame{state: StateRecvMenuNumItems})
		if err := c.w.WriteMenuRequest(); err != nil {
			return err
		}
		return c.w.Flush()

	case StateRecvMenuNumItems:
		c.pop()
		if _, err := c.expect(protocol.MsgMenuNumItems); err != nil {
			return err
		}
		n, err := c.r.ReadMenuNumItems()
		if err != nil {
			return err
		}
		if n == 0 {
			c.push(frame{state: StateShowMenu})
			return nil
		}
		c.push(frame{state: StateRecvMenuItems, remaining: int(n)})
		return nil

	case StateRecvMenuItems:
		item, err := c.readMenuItem()
		if err != nil {
			return err
		}
		c.items = append(c.items, item)
		f.remaining--
		if f.remaining <= 0 {
			c.replace(frame{state: StateShowMenu})
		}
		return nil

	case StateShowMenu:
		return c.showMenu()

	case StateShowAction:
		item := f.item
		c.pop()
		return c.showAction(item)

	case StateChangeLanguage:
		return c.changeLanguage()

	default:
		return fmt.Errorf("unhandled client state %s", f.state)
	}
}

func (c *Client) top() *frame {
	return &c.stack[len(c.stack)-1]
}

func (c *Client) push(f frame) {
	c.stack = append(c.stack, f)
}

// pop never removes the REQUEST_MENU frame at the bottom.
func (c *Client) pop() {
	if len(c.stack) > 1 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

func (c *Client) replace(f frame) {
	c.pop()
	c.push(f)
}

// expect reports a close by the server as a framing failure, since the
// client only reads when a reply is due.
func (c *Client) expect(want ...protocol.MessageType) (protocol.MessageType, error) {
	mt, err := c.r.Expect(want...)
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: server closed the connection", protocol.ErrFraming)
	}
	return mt, err
}

func (c *Client) readMenuItem() (protocol.MenuItem, error) {
	if _, err := c.expect(protocol.MsgMenuItem); err != nil {
		return protocol.MenuItem{}, err
	}
	return c.r.ReadMenuItem()
}

func (c *Client) text(id protocol.StringID) string {
	return c.catalog.Text(c.lang, int(id))
}

func (c *Client) checkUpdate(ctx context.Context) error {
	if err := c.w.WriteUpdateRequest(c.catalog.Version); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	mt, err := c.expect(protocol.MsgOK, protocol.MsgUpdate)
	if err != nil {
		return err
	}
	if mt == protocol.MsgOK {
		_, err := c.r.ReadOK()
		return err
	}

	data, err := c.r.ReadUpdate()
	if err != nil {
		return err
	}
	next, err := catalog.Parse(data)
	if err != nil {
		return apperror.ErrCatalog(err)
	}

	c.catalog = next
	if !next.HasLanguage(c.lang) {
		c.lang = c.defaultLang
	}
	if err := c.catalogs.Save(ctx, next); err != nil {
		c.log.Warn().Err(err).Msg("could not store updated catalog")
	}
	c.log.Info().Int32("version", next.Version).Msg("catalog updated")
	return nil
}

func (c *Client) showMenu() error {
	fmt.Fprintln(c.out, separator)
	if banner, ok := c.catalog.Banner(c.lang); ok {
		fmt.Fprintln(c.out, banner)
		fmt.Fprintln(c.out, separator)
	}

	n := int64(len(c.items))
	choice, err := c.in.Choose(1, n+1, func() {
		for i, item := range c.items {
			fmt.Fprintf(c.out, "%d: %s\n", i+1, c.text(item.MenuText))
		}
		fmt.Fprintf(c.out, "%d: %s\n", n+1, c.catalog.Useful(c.lang, catalog.UsefulChangeLanguage))
	})
	if err != nil {
		return err
	}

	if choice == n+1 {
		c.replace(frame{state: StateChangeLanguage})
		return nil
	}
	c.replace(frame{state: StateShowAction, item: c.items[choice-1]})
	return nil
}

func (c *Client) showAction(item protocol.MenuItem) error {
	c.txn++
	prompt := func() {
		if item.PromptText != protocol.SNone {
			fmt.Fprintln(c.out, c.text(item.PromptText))
		}
	}

	arg := protocol.NoArgument
	if item.Type.Has(protocol.TypeSndUint32) {
		v, err := c.in.Choose(0, math.MaxInt32, prompt)
		if err != nil {
			return err
		}
		arg = int32(v)
	} else {
		prompt()
	}

	if err := c.w.WriteAction(protocol.Action{Code: item.Action, Arg: arg, TxnID: c.txn}); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	if err := c.readResult(item); err != nil {
		return err
	}

	if item.Type.Has(protocol.TypeRecvFollowup) {
		next, err := c.readMenuItem()
		if err != nil {
			return err
		}
		c.push(frame{state: StateShowAction, item: next})
	}
	return nil
}

func (c *Client) readResult(item protocol.MenuItem) error {
	want := []protocol.MessageType{protocol.MsgOK, protocol.MsgFail}
	if item.Type.Has(protocol.TypeRecvUint32) {
		want = []protocol.MessageType{protocol.MsgResponse, protocol.MsgFail}
	}

	mt, err := c.expect(want...)
	if err != nil {
		return err
	}

	var txn uint16
	switch mt {
	case protocol.MsgResponse:
		resp, err := c.r.ReadResponse()
		if err != nil {
			return err
		}
		txn = resp.TxnID
		fmt.Fprintln(c.out, resp.Value)
	case protocol.MsgFail:
		f, err := c.r.ReadFail()
		if err != nil {
			return err
		}
		txn = f.TxnID
		fmt.Fprintln(c.out, c.text(f.TextID))
	default:
		if txn, err = c.r.ReadOK(); err != nil {
			return err
		}
	}

	if txn != c.txn {
		c.log.Warn().Uint16("txn", txn).Uint16("want", c.txn).Msg("reply for another transaction")
	}
	return nil
}

func (c *Client) changeLanguage() error {
	langs := c.catalog.Languages()
	if len(langs) == 0 {
		c.pop()
		return nil
	}

	fmt.Fprintln(c.out, separator)
	for i, name := range langs {
		fmt.Fprintf(c.out, "%d: %s\n", i+1, name)
	}
	choice, err := c.in.Choose(1, int64(len(langs)), nil)
	if err != nil {
		return err
	}

	c.lang = langs[choice-1]
	c.pop()
	return nil
}

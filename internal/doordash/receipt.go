package doordash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/doordash-export/internal/cache"
)

// receiptURLFormat is the old v2 order_carts endpoint with every expansion
// the web receipt page used to request. Kept verbatim so the path still
// works if it ever needs to be revived.
const receiptURLFormat = "https://api.doordash.com/v2/order_carts/%s/" +
	"?expand=store_order_carts&expand=store_order_carts.%%5Bdelivery%%2Cstore%%5D" +
	"&expand=store_order_carts.store.business" +
	"&expand=store_order_carts.orders.%%5Bconsumer%%5D" +
	"&expand=store_order_carts.orders.order_items.%%5Bitem%%2Coptions%%5D" +
	"&expand=store_order_carts.orders.order_items.options.item_extra_option.item_extra" +
	"&extra=is_group%%2Csubtotal%%2Ctax_amount%%2Ctotal_charged" +
	"&extra=store_order_carts.%%5Borders%%2Cdelivery%%2Ctip_amount%%5D" +
	"&extra=store_order_carts.orders.order_items" +
	"&extra=store_order_carts.orders.order_items.%%5Bid%%2Cunit_price%%2Cquantity%%2Citem%%2Cspecial_instructions%%2Coptions%%5D" +
	"&extra=store_order_carts.orders.order_items.options.%%5Bid%%2Citem_extra_option%%5D" +
	"&extra=store_order_carts.orders.order_items.options.item_extra_option.%%5Bname%%2Cdescription%%2Cid%%2Citem_extra%%5D" +
	"&extra=store_order_carts.orders.order_items.options.item_extra_option.item_extra.name" +
	"&extra=store_order_carts.orders.order_items.item.%%5Bname%%2Cid%%2Cprice%%5D"

// FetchReceipt fetches one full itemized receipt from the v2 order_carts
// endpoint.
//
// Deprecated: the order history GraphQL query now returns per-person items
// directly, so the export pipeline no longer calls this. It survives only
// for ad-hoc inspection of a single order.
func (c *Client) FetchReceipt(ctx context.Context, orderID string) ([]byte, error) {
	url := fmt.Sprintf(receiptURLFormat, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create receipt request: %w", err)
	}
	req.Header.Set("Cookie", c.SessionCookie())
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("fetching receipt", slog.String("order_id", orderID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read receipt response %s: %w", orderID, err)
	}
	return payload, nil
}

// FetchReceiptCached is FetchReceipt behind the response cache, keyed by
// order id.
//
// Deprecated: see FetchReceipt.
func (c *Client) FetchReceiptCached(ctx context.Context, store *cache.Store, orderID string) ([]byte, bool, error) {
	return store.GetOrFetch(cache.ReceiptKey{OrderID: orderID}, func() ([]byte, error) {
		return c.FetchReceipt(ctx, orderID)
	})
}

package marketplace

// GetSaleListing returns a copy of the stored sale listing, active or not.
func (e *Engine) GetSaleListing(node [32]byte) (*SaleListing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	listing, ok := e.state.SaleListingGet(node)
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// GetRentalListing returns a copy of the stored rental listing.
func (e *Engine) GetRentalListing(node [32]byte) (*RentalListing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	listing, ok := e.state.RentalListingGet(node)
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// GetActiveRental returns a copy of the stored rental record, including
// ended rentals kept as history.
func (e *Engine) GetActiveRental(node [32]byte) (*ActiveRental, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}
	rental, ok := e.state.ActiveRentalGet(node)
	if !ok {
		return nil, false
	}
	return rental.Clone(), true
}

// GetOffers returns copies of every offer recorded against the node in
// submission order, inactive slots included.
func (e *Engine) GetOffers(node [32]byte) []*Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	offers, err := e.state.OffersGet(node)
	if err != nil {
		return nil
	}
	out := make([]*Offer, len(offers))
	for i, offer := range offers {
		out[i] = offer.Clone()
	}
	return out
}

// IsListedForSale reports whether the node carries an active sale listing.
func (e *Engine) IsListedForSale(node [32]byte) bool {
	listing, ok := e.GetSaleListing(node)
	return ok && listing.Active
}

// IsListedForRent reports whether the node carries an active rental
// listing.
func (e *Engine) IsListedForRent(node [32]byte) bool {
	listing, ok := e.GetRentalListing(node)
	return ok && listing.Active
}

// IsCurrentlyRented reports whether an unexpired rental occupies the node.
func (e *Engine) IsCurrentlyRented(node [32]byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return false
	}
	return e.rentalLock(node, e.now())
}

// Stats returns a copy of the aggregate settlement counters.
func (e *Engine) Stats() (*Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	stats, err := e.state.StatsGet()
	if err != nil {
		return nil, err
	}
	return stats.Clone(), nil
}

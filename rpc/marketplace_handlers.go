package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/config"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/marketplace"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/registry"
)

type nodeRef struct {
	Node string `json:"node,omitempty"`
	Name string `json:"name,omitempty"`
}

func (ref nodeRef) resolve() ([32]byte, error) {
	if name := strings.TrimSpace(ref.Name); name != "" {
		return registry.Node(name), nil
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(ref.Node), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("node must be 32 bytes of hex")
	}
	var node [32]byte
	copy(node[:], raw)
	return node, nil
}

func parseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func invalidParams(msg string) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: msg}
}

func decodeParams(raw json.RawMessage, out interface{}) *rpcError {
	if len(raw) == 0 {
		return invalidParams("params required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidParams("malformed params: " + err.Error())
	}
	return nil
}

type listForSaleParams struct {
	nodeRef
	Caller string `json:"caller"`
	Price  string `json:"price"`
}

type buyDomainParams struct {
	nodeRef
	Caller  string `json:"caller"`
	Payment string `json:"payment"`
}

type updatePriceParams struct {
	nodeRef
	Caller   string `json:"caller"`
	NewPrice string `json:"newPrice"`
}

type actorParams struct {
	nodeRef
	Caller string `json:"caller"`
}

type listForRentParams struct {
	nodeRef
	Caller      string `json:"caller"`
	PricePerDay string `json:"pricePerDay"`
	MinDuration uint32 `json:"minDuration"`
	MaxDuration uint32 `json:"maxDuration"`
}

type rentDomainParams struct {
	nodeRef
	Caller   string `json:"caller"`
	Duration uint32 `json:"duration"`
	Payment  string `json:"payment"`
}

type makeOfferParams struct {
	nodeRef
	Caller    string `json:"caller"`
	Amount    string `json:"amount"`
	OfferType string `json:"offerType"`
	Duration  uint32 `json:"duration,omitempty"`
}

type offerIndexParams struct {
	nodeRef
	Caller string `json:"caller"`
	Index  int    `json:"index"`
}

type setFeeParams struct {
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

type setTreasuryParams struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

type operatorParams struct {
	Caller string `json:"caller"`
}

type registerParams struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type fundParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type saleListingResult struct {
	Seller   string `json:"seller"`
	Price    string `json:"price"`
	ListedAt int64  `json:"listedAt"`
	Active   bool   `json:"active"`
}

type rentalListingResult struct {
	Owner       string `json:"owner"`
	PricePerDay string `json:"pricePerDay"`
	MinDuration uint32 `json:"minDuration"`
	MaxDuration uint32 `json:"maxDuration"`
	ListedAt    int64  `json:"listedAt"`
	Active      bool   `json:"active"`
}

type activeRentalResult struct {
	Renter    string `json:"renter"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	TotalPaid string `json:"totalPaid"`
	Active    bool   `json:"active"`
}

type offerResult struct {
	Index     int    `json:"index"`
	Offerer   string `json:"offerer"`
	Amount    string `json:"amount"`
	OfferType string `json:"offerType"`
	Duration  uint32 `json:"duration,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Active    bool   `json:"active"`
}

type statsResult struct {
	TotalSales   uint64 `json:"totalSales"`
	TotalRentals uint64 `json:"totalRentals"`
	SaleVolume   string `json:"saleVolume"`
	RentalVolume string `json:"rentalVolume"`
}

type statusResult struct {
	Status string `json:"status"`
}

var okResult = statusResult{Status: "ok"}

func addrHex(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func (s *Server) dispatch(req *rpcRequest) (interface{}, *rpcError) {
	switch req.Method {
	case "ins_listForSale":
		return s.handleListForSale(req.Params)
	case "ins_buyDomain":
		return s.handleBuyDomain(req.Params)
	case "ins_updateSalePrice":
		return s.handleUpdateSalePrice(req.Params)
	case "ins_cancelSaleListing":
		return s.handleCancelSaleListing(req.Params)
	case "ins_listForRent":
		return s.handleListForRent(req.Params)
	case "ins_rentDomain":
		return s.handleRentDomain(req.Params)
	case "ins_endRental":
		return s.handleEndRental(req.Params)
	case "ins_cancelRentalListing":
		return s.handleCancelRentalListing(req.Params)
	case "ins_makeOffer":
		return s.handleMakeOffer(req.Params)
	case "ins_acceptOffer":
		return s.handleAcceptOffer(req.Params)
	case "ins_cancelOffer":
		return s.handleCancelOffer(req.Params)
	case "ins_getSaleListing":
		return s.handleGetSaleListing(req.Params)
	case "ins_getRentalListing":
		return s.handleGetRentalListing(req.Params)
	case "ins_getActiveRental":
		return s.handleGetActiveRental(req.Params)
	case "ins_getOffers":
		return s.handleGetOffers(req.Params)
	case "ins_stats":
		return s.handleStats()
	case "ins_resolve":
		return s.handleResolve(req.Params)
	case "ins_setPlatformFee":
		return s.handleSetPlatformFee(req.Params)
	case "ins_setTreasury":
		return s.handleSetTreasury(req.Params)
	case "ins_pause":
		return s.handlePause(req.Params)
	case "ins_unpause":
		return s.handleUnpause(req.Params)
	case "ins_register":
		return s.handleRegister(req.Params)
	case "ins_fund":
		return s.handleFund(req.Params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
}

func (s *Server) handleListForSale(raw json.RawMessage) (interface{}, *rpcError) {
	var params listForSaleParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	price, err := parseAmount(params.Price)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.ListForSale(caller, node, price); err != nil {
		return nil, s.errorFor("ins_listForSale", err)
	}
	return okResult, nil
}

func (s *Server) handleBuyDomain(raw json.RawMessage) (interface{}, *rpcError) {
	var params buyDomainParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.BuyDomain(caller, node, payment); err != nil {
		return nil, s.errorFor("ins_buyDomain", err)
	}
	s.metrics.ObserveSettlement("sale")
	return okResult, nil
}

func (s *Server) handleUpdateSalePrice(raw json.RawMessage) (interface{}, *rpcError) {
	var params updatePriceParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	price, err := parseAmount(params.NewPrice)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.UpdateSalePrice(caller, node, price); err != nil {
		return nil, s.errorFor("ins_updateSalePrice", err)
	}
	return okResult, nil
}

func (s *Server) handleCancelSaleListing(raw json.RawMessage) (interface{}, *rpcError) {
	var params actorParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.CancelSaleListing(caller, node); err != nil {
		return nil, s.errorFor("ins_cancelSaleListing", err)
	}
	return okResult, nil
}

func (s *Server) handleListForRent(raw json.RawMessage) (interface{}, *rpcError) {
	var params listForRentParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	pricePerDay, err := parseAmount(params.PricePerDay)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.ListForRent(caller, node, pricePerDay, params.MinDuration, params.MaxDuration); err != nil {
		return nil, s.errorFor("ins_listForRent", err)
	}
	return okResult, nil
}

func (s *Server) handleRentDomain(raw json.RawMessage) (interface{}, *rpcError) {
	var params rentDomainParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.RentDomain(caller, node, params.Duration, payment); err != nil {
		return nil, s.errorFor("ins_rentDomain", err)
	}
	s.metrics.ObserveSettlement("rental")
	return okResult, nil
}

func (s *Server) handleEndRental(raw json.RawMessage) (interface{}, *rpcError) {
	var params actorParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.EndRental(caller, node); err != nil {
		return nil, s.errorFor("ins_endRental", err)
	}
	return okResult, nil
}

func (s *Server) handleCancelRentalListing(raw json.RawMessage) (interface{}, *rpcError) {
	var params actorParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.CancelRentalListing(caller, node); err != nil {
		return nil, s.errorFor("ins_cancelRentalListing", err)
	}
	return okResult, nil
}

func (s *Server) handleMakeOffer(raw json.RawMessage) (interface{}, *rpcError) {
	var params makeOfferParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	var offerType marketplace.OfferType
	switch strings.ToLower(strings.TrimSpace(params.OfferType)) {
	case "buy":
		offerType = marketplace.OfferBuy
	case "rent":
		offerType = marketplace.OfferRent
	default:
		return nil, invalidParams("offerType must be \"buy\" or \"rent\"")
	}
	index, err := s.engine.MakeOffer(caller, node, amount, offerType, params.Duration)
	if err != nil {
		return nil, s.errorFor("ins_makeOffer", err)
	}
	return map[string]int{"index": index}, nil
}

func (s *Server) handleAcceptOffer(raw json.RawMessage) (interface{}, *rpcError) {
	var params offerIndexParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.AcceptOffer(caller, node, params.Index); err != nil {
		return nil, s.errorFor("ins_acceptOffer", err)
	}
	s.metrics.ObserveSettlement("offer")
	return okResult, nil
}

func (s *Server) handleCancelOffer(raw json.RawMessage) (interface{}, *rpcError) {
	var params offerIndexParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.CancelOffer(caller, node, params.Index); err != nil {
		return nil, s.errorFor("ins_cancelOffer", err)
	}
	return okResult, nil
}

func (s *Server) handleGetSaleListing(raw json.RawMessage) (interface{}, *rpcError) {
	var params nodeRef
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	listing, ok := s.engine.GetSaleListing(node)
	if !ok {
		return nil, nil
	}
	return saleListingResult{
		Seller:   addrHex(listing.Seller),
		Price:    listing.Price.String(),
		ListedAt: listing.ListedAt,
		Active:   listing.Active,
	}, nil
}

func (s *Server) handleGetRentalListing(raw json.RawMessage) (interface{}, *rpcError) {
	var params nodeRef
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	listing, ok := s.engine.GetRentalListing(node)
	if !ok {
		return nil, nil
	}
	return rentalListingResult{
		Owner:       addrHex(listing.Owner),
		PricePerDay: listing.PricePerDay.String(),
		MinDuration: listing.MinDuration,
		MaxDuration: listing.MaxDuration,
		ListedAt:    listing.ListedAt,
		Active:      listing.Active,
	}, nil
}

func (s *Server) handleGetActiveRental(raw json.RawMessage) (interface{}, *rpcError) {
	var params nodeRef
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	rental, ok := s.engine.GetActiveRental(node)
	if !ok {
		return nil, nil
	}
	return activeRentalResult{
		Renter:    addrHex(rental.Renter),
		StartTime: rental.StartTime,
		EndTime:   rental.EndTime,
		TotalPaid: rental.TotalPaid.String(),
		Active:    rental.Active,
	}, nil
}

func (s *Server) handleGetOffers(raw json.RawMessage) (interface{}, *rpcError) {
	var params nodeRef
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	offers := s.engine.GetOffers(node)
	out := make([]offerResult, len(offers))
	for i, offer := range offers {
		out[i] = offerResult{
			Index:     i,
			Offerer:   addrHex(offer.Offerer),
			Amount:    offer.Amount.String(),
			OfferType: offer.Type.String(),
			Duration:  offer.Duration,
			CreatedAt: offer.CreatedAt,
			ExpiresAt: offer.ExpiresAt,
			Active:    offer.Active,
		}
	}
	return out, nil
}

func (s *Server) handleStats() (interface{}, *rpcError) {
	stats, err := s.engine.Stats()
	if err != nil {
		return nil, s.errorFor("ins_stats", err)
	}
	return statsResult{
		TotalSales:   stats.TotalSales,
		TotalRentals: stats.TotalRentals,
		SaleVolume:   stats.SaleVolume.String(),
		RentalVolume: stats.RentalVolume.String(),
	}, nil
}

func (s *Server) handleResolve(raw json.RawMessage) (interface{}, *rpcError) {
	var params nodeRef
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	node, err := params.resolve()
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	owner, err := s.ledger.Resolve(node)
	if err != nil {
		return nil, s.errorFor("ins_resolve", marketplace.ErrAssetNotFound)
	}
	name, _ := s.ledger.NameOf(node)
	return map[string]string{
		"node":  "0x" + hex.EncodeToString(node[:]),
		"owner": addrHex(owner),
		"name":  name,
	}, nil
}

func (s *Server) handleSetPlatformFee(raw json.RawMessage) (interface{}, *rpcError) {
	var params setFeeParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.SetPlatformFee(caller, params.FeeBps); err != nil {
		return nil, s.errorFor("ins_setPlatformFee", err)
	}
	return okResult, nil
}

func (s *Server) handleSetTreasury(raw json.RawMessage) (interface{}, *rpcError) {
	var params setTreasuryParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	treasury, err := config.ParseAddress(params.Treasury)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.SetTreasury(caller, treasury); err != nil {
		return nil, s.errorFor("ins_setTreasury", err)
	}
	return okResult, nil
}

func (s *Server) handlePause(raw json.RawMessage) (interface{}, *rpcError) {
	var params operatorParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.Pause(caller); err != nil {
		return nil, s.errorFor("ins_pause", err)
	}
	return okResult, nil
}

func (s *Server) handleUnpause(raw json.RawMessage) (interface{}, *rpcError) {
	var params operatorParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := config.ParseAddress(params.Caller)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if err := s.engine.Unpause(caller); err != nil {
		return nil, s.errorFor("ins_unpause", err)
	}
	return okResult, nil
}

// handleRegister seeds a name in the in-memory registry. Devnet only.
func (s *Server) handleRegister(raw json.RawMessage) (interface{}, *rpcError) {
	if !s.faucet {
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
	var params registerParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := config.ParseAddress(params.Owner)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	node, err := s.ledger.Register(params.Name, owner)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	return map[string]string{"node": "0x" + hex.EncodeToString(node[:])}, nil
}

// handleFund credits a devnet account balance. Devnet only.
func (s *Server) handleFund(raw json.RawMessage) (interface{}, *rpcError) {
	if !s.faucet {
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
	var params fundParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := config.ParseAddress(params.Address)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	if amount.Sign() <= 0 {
		return nil, invalidParams("amount must be positive")
	}
	account, err := s.store.GetAccount(addr)
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Message: err.Error()}
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	if err := s.store.PutAccount(addr, account); err != nil {
		return nil, &rpcError{Code: codeServerError, Message: err.Error()}
	}
	return okResult, nil
}

// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultGatewayURL = "https://mainnet.radixdlt.com"

	// StakedResource sCVX
	StakedResource = "resource_rdx1t5q4aa74uxcgzehk0u3hjy6kng9rqyr4uvktnud8ehdqaaez50n693"
	// PaymentResource CVX
	PaymentResource = "resource_rdx1th04p2c55884yytgj0e8nq79ze9wjnvu4rpg9d7nh3t698cxdt0cr9"
	// MintComponent 負責鑄造 NFT 的元件
	MintComponent = "component_rdx1cqpv4nfsgfk9c2r9ymnqyksfkjsg07mfc49m9qw3dpgzrmjmsuuquv"
	MintMethod    = "mint_user_nft"
	// TreasuryAccount 購買能量的收款帳戶
	TreasuryAccount = "account_rdx16ya2ncwya20j2w0k8d49us5ksvzepjhhh7cassx9jp9gz6hw69mhks"
	// XRDResource 原生代幣
	XRDResource = "resource_rdx1tknxxxxxxxxxradxrdxxxxxxxxx009923554798xxxxxxxxxradxrd"
	// EggComponent 鑄造蛋 NFT 的元件；BackendBadge 由 DappDefinition 帳戶持有
	EggComponent   = "component_rdx1crz6pcapzglrv68tydmuq226ydtsu0x2vlx3793g4qe72450m3f86t"
	BackendBadge   = "resource_rdx1tkfpjtakrtv96e4l38djre4pxdwaa49sa7djhfwt3egqm42ztt0ddw"
	DappDefinition = "account_rdx12yszc3rh4yq3h9syvg5uv4ennzg8ujkmtaptc4r3a9npe6wgzwn7ar"

	userAgent = "CorvaxLab Game/1.0"
)

// RadixGateway 透過 Radix Gateway API 實作 BalanceOracle 與 LedgerGateway。
//
// 同一帳戶的並發餘額查詢會合併成一次 HTTP 請求。
type RadixGateway struct {
	BaseURL   string
	Client    *http.Client
	CvxAmount float64

	group singleflight.Group
}

// NewRadixGateway 建立 Gateway 客戶端；baseURL 為空時使用主網。
func NewRadixGateway(baseURL string, timeout time.Duration, cvxAmount float64) *RadixGateway {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RadixGateway{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		CvxAmount: cvxAmount,
	}
}

type fungiblesRequest struct {
	Address      string `json:"address"`
	LimitPerPage int    `json:"limit_per_page"`
}

type fungiblesResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		ResourceAddress string `json:"resource_address"`
		Amount          string `json:"amount"`
	} `json:"items"`
}

type statusRequest struct {
	IntentHash string `json:"intent_hash"`
}

type statusResponse struct {
	Status       string `json:"status"`
	IntentStatus string `json:"intent_status"`
	ErrorMessage string `json:"error_message"`
}

type detailsRequest struct {
	IntentHash string        `json:"intent_hash"`
	OptIns     detailsOptIns `json:"opt_ins"`
}

type detailsOptIns struct {
	Message bool `json:"message"`
}

type detailsResponse struct {
	Transaction struct {
		TransactionStatus string `json:"transaction_status"`
		Message           *struct {
			Type    string `json:"type"`
			Content struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"content"`
		} `json:"message"`
	} `json:"transaction"`
}

// FetchStakedBalance 查詢帳戶持有的 sCVX 數量；帳戶沒有該資源時回傳 0。
func (g *RadixGateway) FetchStakedBalance(ctx context.Context, account string) (float64, error) {
	if err := ValidAccount(account); err != nil {
		return 0, err
	}
	ch := g.group.DoChan(account, func() (any, error) {
		// 合併後的請求不受單一呼叫端取消影響，只受 client timeout 約束
		return g.fetchStaked(context.WithoutCancel(ctx), account)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

func (g *RadixGateway) fetchStaked(ctx context.Context, account string) (float64, error) {
	var out fungiblesResponse
	if err := g.post(ctx, "/state/entity/page/fungibles/", fungiblesRequest{Address: account, LimitPerPage: 100}, &out); err != nil {
		return 0, err
	}
	for _, it := range out.Items {
		if it.ResourceAddress != StakedResource {
			continue
		}
		v, err := strconv.ParseFloat(it.Amount, 64)
		if err != nil {
			return 0, errs.Wrap(err, "invalid sCVX amount")
		}
		return v, nil
	}
	return 0, nil
}

// RequestStatus 查詢交易意圖（intent）的狀態
func (g *RadixGateway) RequestStatus(ctx context.Context, intentHash string) (TxStatus, error) {
	if intentHash == "" {
		return TxUnknown, errs.Validation("intent hash required")
	}
	var out statusResponse
	if err := g.post(ctx, "/transaction/status", statusRequest{IntentHash: intentHash}, &out); err != nil {
		return TxUnknown, err
	}
	return ParseTxStatus(out.Status), nil
}

// TxMessage 查詢已提交交易的純文字 message；加密或非字串的 message 視為沒有。
func (g *RadixGateway) TxMessage(ctx context.Context, intentHash string) (string, error) {
	if intentHash == "" {
		return "", errs.Validation("intent hash required")
	}
	var out detailsResponse
	req := detailsRequest{IntentHash: intentHash, OptIns: detailsOptIns{Message: true}}
	if err := g.post(ctx, "/transaction/committed-details", req, &out); err != nil {
		return "", err
	}
	m := out.Transaction.Message
	if m == nil || m.Type != "Plaintext" || m.Content.Type != "String" {
		return "", nil
	}
	return m.Content.Value, nil
}

// ParseTxStatus 把 Gateway 的狀態字串對應到 TxStatus
func ParseTxStatus(s string) TxStatus {
	switch s {
	case "CommittedSuccess":
		return TxCommitted
	case "CommittedFailure", "Rejected", "PermanentlyRejected":
		return TxFailed
	case "Pending":
		return TxPending
	default:
		return TxUnknown
	}
}

// CreateMintRequest 產生鑄造清單；不會送出交易，由玩家錢包簽署。
func (g *RadixGateway) CreateMintRequest(_ context.Context, account string) (MintRequest, error) {
	if err := ValidAccount(account); err != nil {
		return MintRequest{}, err
	}
	return MintRequest{
		ID:       uuid.NewString(),
		Account:  account,
		Manifest: MintManifest(account),
	}, nil
}

// EnergyPurchaseManifest 產生以 CVX 購買能量的交易清單
func (g *RadixGateway) EnergyPurchaseManifest(account string) (string, error) {
	if err := ValidAccount(account); err != nil {
		return "", err
	}
	return EnergyManifest(account, g.CvxAmount), nil
}

// EggMintManifest 產生鑄造蛋的交易清單
func (g *RadixGateway) EggMintManifest(account string, payWithEggs bool, xrdCost float64) (string, error) {
	if err := ValidAccount(account); err != nil {
		return "", err
	}
	if payWithEggs {
		return BackendEggManifest(account), nil
	}
	return EggManifest(account, xrdCost), nil
}

func (g *RadixGateway) post(ctx context.Context, path string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(err, "marshal gateway request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(bs))
	if err != nil {
		return errs.Wrap(err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return errs.Wrap(err, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return errs.NewFatal(fmt.Sprintf("gateway status %d: %s", resp.StatusCode, snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(err, "decode gateway response")
	}
	return nil
}

// ValidAccount 帳戶位址只允許小寫英數與底線，避免被塞進交易清單。
func ValidAccount(account string) error {
	if !strings.HasPrefix(account, "account_") {
		return errs.Validation("invalid account address")
	}
	for _, r := range account {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return errs.Validation("invalid account address")
		}
	}
	return nil
}

// MintManifest 呼叫鑄造元件並把結果存回玩家帳戶
func MintManifest(account string) string {
	return fmt.Sprintf(`CALL_METHOD
    Address("%s")
    "%s"
;
CALL_METHOD
    Address("%s")
    "try_deposit_batch_or_abort"
    Expression("ENTIRE_WORKTOP")
    None
;
`, MintComponent, MintMethod, account)
}

// EnergyManifest 從玩家帳戶提出 CVX 並存入收款帳戶
func EnergyManifest(account string, amount float64) string {
	return fmt.Sprintf(`CALL_METHOD
    Address("%s")
    "withdraw"
    Address("%s")
    Decimal("%s")
;
CALL_METHOD
    Address("%s")
    "try_deposit_batch_or_abort"
    Expression("ENTIRE_WORKTOP")
    None
;
`, account, PaymentResource, strconv.FormatFloat(amount, 'f', 1, 64), TreasuryAccount)
}

// EggManifest 以 XRD 付款鑄造一顆蛋
func EggManifest(account string, xrdCost float64) string {
	amount := strconv.FormatFloat(xrdCost, 'f', -1, 64)
	return fmt.Sprintf(`CALL_METHOD
    Address("%s")
    "withdraw"
    Address("%s")
    Decimal("%s")
;
TAKE_FROM_WORKTOP
    Address("%s")
    Decimal("%s")
    Bucket("payment")
;
CALL_METHOD
    Address("%s")
    "mint_egg"
    Bucket("payment")
;
CALL_METHOD
    Address("%s")
    "try_deposit_batch_or_abort"
    Expression("ENTIRE_WORKTOP")
    None
;
`, account, XRDResource, amount, XRDResource, amount, EggComponent, account)
}

// BackendEggManifest 以後端徽章鑄造一顆蛋；遊戲內的蛋在交易提交後才扣除。
func BackendEggManifest(account string) string {
	return fmt.Sprintf(`CALL_METHOD
    Address("%s")
    "create_proof_of_amount"
    Address("%s")
    Decimal("1")
;
CREATE_PROOF_FROM_AUTH_ZONE_OF_ALL
    Address("%s")
    Proof("backend_proof")
;
CALL_METHOD
    Address("%s")
    "backend_mint_egg"
    Proof("backend_proof")
    None
;
DROP_ALL_PROOFS;
CALL_METHOD
    Address("%s")
    "try_deposit_batch_or_abort"
    Expression("ENTIRE_WORKTOP")
    None
;
`, DappDefinition, BackendBadge, BackendBadge, EggComponent, account)
}

package evmrpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

type rpcTransaction struct {
	Hash                 string  `json:"hash"`
	BlockNumber          *string `json:"blockNumber"`
	BlockHash            *string `json:"blockHash"`
	TransactionIndex     string  `json:"transactionIndex"`
	From                 string  `json:"from"`
	To                   *string `json:"to"`
	Nonce                string  `json:"nonce"`
	Gas                  string  `json:"gas"`
	GasPrice             *string `json:"gasPrice"`
	MaxFeePerGas         *string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *string `json:"maxPriorityFeePerGas"`
	Input                string  `json:"input"`
	Value                string  `json:"value"`
	ChainID              *string `json:"chainId"`
}

type rpcBlock struct {
	Number       string            `json:"number"`
	Hash         string            `json:"hash"`
	Timestamp    string            `json:"timestamp"`
	Transactions []rpcTransaction  `json:"transactions"`
}

type rpcLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
	Index   string   `json:"logIndex"`
}

type rpcReceipt struct {
	Status          string   `json:"status"`
	BlockNumber     string   `json:"blockNumber"`
	Logs            []rpcLog `json:"logs"`
	ContractAddress *string  `json:"contractAddress"`
}

// nullOrEmpty reports whether raw is the JSON null literal, which every
// eth_get* method returns for a not-yet-existing block, transaction, or
// receipt.
func nullOrEmpty(raw json.RawMessage) bool {
	var s string
	err := json.Unmarshal(raw, &s)
	return err == nil && s == ""
}

// DecodeBlock converts an eth_getBlockByNumber (full-transaction-objects)
// response into a domain.Block. A nil block with nil error means the node
// does not have that block yet.
func DecodeBlock(raw json.RawMessage) (*domain.Block, error) {
	if nullOrEmpty(raw) {
		return nil, nil
	}

	var rb *rpcBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	if rb == nil {
		return nil, nil
	}

	number, err := ParseHexUint64(rb.Number)
	if err != nil {
		return nil, fmt.Errorf("decoding block number: %w", err)
	}
	timestamp, err := ParseHexUint64(rb.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("decoding block timestamp: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(rb.Transactions))
	for _, rt := range rb.Transactions {
		tx, err := rt.toDomain()
		if err != nil {
			continue // malformed transaction: drop it, keep the rest of the block
		}
		txs = append(txs, tx)
	}

	return &domain.Block{Number: number, Hash: rb.Hash, Timestamp: timestamp, Transactions: txs}, nil
}

// DecodeTransaction converts an eth_getTransactionByHash response.
func DecodeTransaction(raw json.RawMessage) (*domain.Transaction, error) {
	if nullOrEmpty(raw) {
		return nil, nil
	}

	var rt *rpcTransaction
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	if rt == nil {
		return nil, nil
	}
	tx, err := rt.toDomain()
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (rt rpcTransaction) toDomain() (domain.Transaction, error) {
	nonce, err := ParseHexUint64(rt.Nonce)
	if err != nil {
		return domain.Transaction{}, err
	}
	gas, err := ParseHexUint64(rt.Gas)
	if err != nil {
		return domain.Transaction{}, err
	}
	value, err := ParseHexBigInt(rt.Value)
	if err != nil {
		return domain.Transaction{}, err
	}
	index, err := ParseHexUint64(rt.TransactionIndex)
	if err != nil {
		index = 0
	}

	tx := domain.Transaction{
		Hash:     strings.ToLower(rt.Hash),
		Index:    uint(index),
		From:     strings.ToLower(rt.From),
		Nonce:    nonce,
		GasLimit: gas,
		Calldata: common.FromHex(rt.Input),
		Value:    value,
		Origin:   domain.OriginBlock,
	}

	if rt.To != nil {
		to := strings.ToLower(*rt.To)
		tx.To = &to
	}
	if rt.BlockNumber != nil {
		if n, err := ParseHexUint64(*rt.BlockNumber); err == nil {
			tx.BlockNumber = &n
		}
	}
	if rt.BlockHash != nil {
		h := *rt.BlockHash
		tx.BlockHash = &h
	}
	if rt.GasPrice != nil {
		if v, err := ParseHexBigInt(*rt.GasPrice); err == nil {
			tx.GasPrice = v
		}
	}
	if rt.MaxFeePerGas != nil {
		if v, err := ParseHexBigInt(*rt.MaxFeePerGas); err == nil {
			tx.MaxFeePerGas = v
		}
	}
	if rt.MaxPriorityFeePerGas != nil {
		if v, err := ParseHexBigInt(*rt.MaxPriorityFeePerGas); err == nil {
			tx.MaxPriorityFeePerGas = v
		}
	}
	if rt.ChainID != nil {
		if v, err := ParseHexBigInt(*rt.ChainID); err == nil {
			tx.ChainID = v
		}
	}

	return tx, nil
}

// DecodeReceipt converts an eth_getTransactionReceipt response. A nil
// receipt with nil error means the transaction has not been mined yet.
func DecodeReceipt(raw json.RawMessage) (*domain.Receipt, error) {
	if nullOrEmpty(raw) {
		return nil, nil
	}

	var rr *rpcReceipt
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	if rr == nil {
		return nil, nil
	}

	blockNumber, err := ParseHexUint64(rr.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("decoding receipt block number: %w", err)
	}

	logs := make([]domain.Log, len(rr.Logs))
	for i, l := range rr.Logs {
		idx, _ := ParseHexUint64(l.Index)
		logs[i] = domain.Log{
			Address: strings.ToLower(l.Address),
			Topics:  l.Topics,
			Data:    common.FromHex(l.Data),
			Index:   uint(idx),
		}
	}

	receipt := &domain.Receipt{
		Status:      rr.Status == "0x1",
		BlockNumber: blockNumber,
		Logs:        logs,
	}
	if rr.ContractAddress != nil {
		addr := strings.ToLower(*rr.ContractAddress)
		receipt.DeployedContractAddr = &addr
	}
	return receipt, nil
}

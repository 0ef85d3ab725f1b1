package api

import "github.com/nexus-share/nexus-ledger/internal/registry"

// Request bodies.

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type declareRequest struct {
	FileData *fileData `json:"file_data"`
}

// fileData is the resource descriptor the frontend submits.
type fileData struct {
	Name        string  `json:"name"`
	SizeGB      float64 `json:"size_gb"`
	Uploader    string  `json:"uploader"`
	Seeds       int     `json:"seeds"`
	Peers       int     `json:"peers"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	FileHash    string  `json:"file_hash"`
	StoragePath string  `json:"storage_path"`
}

func (f *fileData) toResource(uploader string) registry.Resource {
	return registry.Resource{
		Name:        f.Name,
		SizeGB:      f.SizeGB,
		Uploader:    uploader,
		Seeds:       f.Seeds,
		Peers:       f.Peers,
		Description: f.Description,
		Category:    f.Category,
		FileHash:    f.FileHash,
		StoragePath: f.StoragePath,
		Active:      true,
	}
}

type downloadRequest struct {
	FileID    uint64 `json:"file_id"`
	FileOwner string `json:"file_owner"`
}

type reportRequest struct {
	FileID    uint64 `json:"file_id"`
	FileOwner string `json:"file_owner"`
	Reason    string `json:"reason"`
}

type transferRequest struct {
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Response bodies.

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message       string  `json:"message"`
	Username      string  `json:"username"`
	InitialCredit float64 `json:"initial_credit"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type balanceResponse struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

type declareResponse struct {
	Message            string  `json:"message"`
	Status             string  `json:"status"`
	CreditWhenApproved float64 `json:"credit_when_approved"`
}

type downloadResponse struct {
	Message string `json:"message"`
	FileID  uint64 `json:"file_id"`
}

type mineResponse struct {
	Message      string  `json:"message"`
	Miner        string  `json:"miner"`
	MiningReward float64 `json:"mining_reward"`
	BlockHash    string  `json:"block_hash"`
}

type resourcesResponse struct {
	Resources []*registry.Resource `json:"resources"`
	Total     int                  `json:"total"`
}

type searchResponse struct {
	Results []*registry.Resource `json:"results"`
	Count   int                  `json:"count"`
}

type myFilesResponse struct {
	Files []*registry.Resource `json:"files"`
	Total int                  `json:"total"`
}

type reportResponse struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

type statsResponse struct {
	TotalUsers          int   `json:"total_users"`
	BlockchainHeight    int   `json:"blockchain_height"`
	PendingTransactions int   `json:"pending_transactions"`
	CurrentDifficulty   int   `json:"current_difficulty"`
	IsValid             bool  `json:"is_valid"`
	Timestamp           int64 `json:"timestamp"`
}

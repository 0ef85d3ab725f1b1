package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-share/nexus-ledger/internal/auth"
	"github.com/nexus-share/nexus-ledger/internal/registry"
	"github.com/nexus-share/nexus-ledger/pkg/tx"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if err := s.accounts.Create(req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeMessage(w, http.StatusBadRequest, "Username already exists")
			return
		}
		writeMessage(w, http.StatusInternalServerError, "Registration failed: %v", err)
		return
	}
	if _, err := s.system.RegisterUser(req.Username); err != nil {
		s.accounts.Delete(req.Username)
		writeMessage(w, http.StatusBadRequest, "Registration failed: %v", err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:       "User " + req.Username + " registered successfully!",
		Username:      req.Username,
		InitialCredit: s.system.Params().InitialCredit,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, role, err := s.accounts.Login(req.Username, req.Password)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Username: req.Username,
		Role:     role,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	balance, ok := s.system.GetUserBalance(acct.Username)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Username: acct.Username,
		Balance:  balance,
	})
}

func (s *Server) handleDeclare(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req declareRequest
	if err := decodeBody(r, &req); err != nil || req.FileData == nil {
		writeMessage(w, http.StatusBadRequest, "file_data is required")
		return
	}
	if req.FileData.Name == "" || req.FileData.SizeGB <= 0 || req.FileData.FileHash == "" {
		writeMessage(w, http.StatusBadRequest, "name, size_gb and file_hash are required")
		return
	}

	if !s.system.DeclareUserResources(acct.Username, req.FileData.toResource(acct.Username)) {
		writeMessage(w, http.StatusInternalServerError, "Failed to declare resource")
		return
	}
	writeJSON(w, http.StatusCreated, declareResponse{
		Message:            "Resource declared successfully and pending approval",
		Status:             "pending",
		CreditWhenApproved: s.system.Params().CreditForSize(req.FileData.SizeGB),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req downloadRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == 0 || req.FileOwner == "" {
		writeMessage(w, http.StatusBadRequest, "file_id and file_owner are required")
		return
	}

	if !s.system.DownloadResource(acct.Username, req.FileOwner, req.FileID) {
		writeMessage(w, http.StatusBadRequest, "Download failed - insufficient credit or other error")
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		Message: "Download successful",
		FileID:  req.FileID,
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.system.TransferCredits(acct.Username, req.To, req.Amount) {
		writeMessage(w, http.StatusBadRequest, "Transfer failed - insufficient credit or unknown receiver")
		return
	}
	writeMessage(w, http.StatusOK, "Transfer of %s credits to %s pending confirmation",
		tx.FormatAmount(req.Amount), req.To)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blk, err := s.system.MineBlock(r.Context(), acct.Username)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Mining failed: %v", err)
		return
	}
	if blk == nil {
		writeMessage(w, http.StatusBadRequest, "Mining failed - no pending transactions")
		return
	}

	reward := blk.Transactions[len(blk.Transactions)-1]
	writeJSON(w, http.StatusOK, mineResponse{
		Message:      "Block mined successfully",
		Miner:        acct.Username,
		MiningReward: reward.Amount(),
		BlockHash:    blk.Hash,
	})
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources := s.system.GetAllResources()
	writeJSON(w, http.StatusOK, resourcesResponse{
		Resources: resources,
		Total:     len(resources),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := registry.Query{
		Keyword:  strings.TrimSpace(r.URL.Query().Get("keyword")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if v, ok := queryFloat(r, "min_size"); ok {
		q.MinSize = &v
	}
	if v, ok := queryFloat(r, "max_size"); ok {
		q.MaxSize = &v
	}
	if v, ok := queryInt(r, "min_seeds"); ok {
		q.MinSeeds = &v
	}

	results := s.system.SearchResources(q)
	writeJSON(w, http.StatusOK, searchResponse{
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) handleMyFiles(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	files, ok := s.system.GetUserResources(acct.Username)
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, myFilesResponse{
		Files: files,
		Total: len(files),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	acct := s.currentAccount(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req reportRequest
	if err := decodeBody(r, &req); err != nil || req.FileID == 0 {
		writeMessage(w, http.StatusBadRequest, "file_id is required")
		return
	}
	if req.FileOwner == "" {
		writeMessage(w, http.StatusBadRequest, "file_owner is required")
		return
	}

	if !s.system.ReportResource(req.FileOwner, req.FileID, req.Reason) {
		writeMessage(w, http.StatusBadRequest, "Report failed - unknown resource")
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Message: "File " + strconv.FormatUint(req.FileID, 10) + " has been reported and is under review",
		Action:  "reported",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	info := s.system.GetBlockchainInfo()
	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:          s.accounts.Count(),
		BlockchainHeight:    info.ChainLength,
		PendingTransactions: info.PendingTransactions,
		CurrentDifficulty:   info.CurrentDifficulty,
		IsValid:             info.IsValid,
		Timestamp:           time.Now().Unix(),
	})
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

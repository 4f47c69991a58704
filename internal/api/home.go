package api

import "net/http"

const homePage = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <title>Webhook de Confirmação de Consultas</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; background: #f5f5f5; }
    .container { background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
    h1 { color: #2E86AB; }
    .status { background: #D1ECF1; padding: 15px; border-radius: 5px; margin: 20px 0; }
    .endpoint { background: #F8F9FA; padding: 15px; border-radius: 5px; font-family: monospace; margin: 10px 0; }
    .success { color: #06A77D; font-weight: bold; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Webhook de Confirmação de Consultas</h1>
    <div class="status">
      <p class="success">Servidor online</p>
      <p>Pronto para receber confirmações</p>
    </div>
    <h2>Endpoints</h2>
    <div class="endpoint">POST /webhook/confirmar — body: {"telefone": "..."} ou {"idMarcacao": 123456}</div>
    <div class="endpoint">GET /webhook/status — relatório agregado de confirmações</div>
    <div class="endpoint">POST /webhook/upload-mapeamento — substitui o mapeamento telefone → marcações</div>
    <div class="endpoint">GET /webhook/agenda-medico?medico=...&amp;data_inicio=...&amp;data_fim=...</div>
    <div class="endpoint">GET /webhook/listar-medicos</div>
    <div class="endpoint">POST /webhook/testar — testa a conexão com o sistema de agendamento</div>
  </div>
</body>
</html>
`

func homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(homePage))
}

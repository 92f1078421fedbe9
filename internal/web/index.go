package web

// Single-page dashboard: bot status, open positions, trade tape and alerts,
// refreshed on every SSE change notification.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>botwatch</title>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1200px, 96vw);
      margin:0 auto;
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:1.5rem;
    }
    header { display:flex; justify-content:space-between; align-items:center; gap:1rem; }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    .status.degraded { border-color:#d7263d; color:#d7263d; }
    table { width:100%; border-collapse:collapse; background:#fff; border:2px solid var(--ink); }
    th, td { padding:.45rem .7rem; font-size:.7rem; text-align:left; border-bottom:1px dashed var(--ink-mid); }
    th { text-transform:uppercase; letter-spacing:.12em; font-size:.55rem; }
    .buy { color:#1b9aaa; }
    .sell { color:#d7263d; }
    .pill {
      font-size:.55rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      padding:.35rem .7rem;
      border:2px solid var(--ink);
      background:#fefefe;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    h2 { font-size:.75rem; text-transform:uppercase; letter-spacing:.15em; margin:0; }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <h2>botwatch</h2>
      <div id="meta"></div>
      <div id="sse-status" class="status">Connecting…</div>
    </header>
    <section>
      <h2>Positions</h2>
      <table><thead><tr><th>Symbol</th><th>Size</th><th>Entry</th><th>uPnL</th></tr></thead><tbody id="positions"></tbody></table>
    </section>
    <section>
      <h2>Trades</h2>
      <table><thead><tr><th>Time</th><th>Symbol</th><th>Side</th><th>Price</th><th>Size</th><th>PnL</th></tr></thead><tbody id="trades"></tbody></table>
    </section>
    <section>
      <h2>Alerts</h2>
      <table><thead><tr><th>Time</th><th>Kind</th><th>Symbol</th><th>Message</th></tr></thead><tbody id="alerts"></tbody></table>
    </section>
  </div>
<script>
const statusEl = document.getElementById('sse-status');
const esc = (v) => String(v ?? '');

async function refresh(){
  try{
    const res = await fetch('/api/state');
    const state = await res.json();
    render(state);
  }catch(err){
    console.error('state fetch', err);
  }
}

function render(state){
  const meta = document.getElementById('meta');
  meta.innerHTML = '';
  const pills = [
    'state: ' + esc(state.status.status),
    'trades today: ' + esc(state.status.trades_today),
    'pnl today: ' + esc(state.status.pnl_today)
  ];
  for(const text of pills){
    const pill = document.createElement('span');
    pill.className = 'pill';
    pill.textContent = text;
    meta.append(pill, document.createTextNode(' '));
  }

  const positions = document.getElementById('positions');
  positions.innerHTML = '';
  for(const sym of Object.keys(state.positions || {}).sort()){
    const p = state.positions[sym];
    const row = positions.insertRow();
    [sym, p.size, p.entry_price, p.unrealized_pnl].forEach((v) => { row.insertCell().textContent = esc(v); });
  }

  const trades = document.getElementById('trades');
  trades.innerHTML = '';
  for(const t of (state.trades || []).slice(0, 50)){
    const row = trades.insertRow();
    row.insertCell().textContent = new Date(t.timestamp).toLocaleTimeString([], { hour12:false });
    row.insertCell().textContent = esc(t.symbol);
    const side = row.insertCell();
    side.textContent = esc(t.side);
    side.className = t.side;
    [t.price, t.size, t.pnl ?? '—'].forEach((v) => { row.insertCell().textContent = esc(v); });
  }

  const alerts = document.getElementById('alerts');
  alerts.innerHTML = '';
  for(const a of (state.alerts || []).slice(0, 20)){
    const row = alerts.insertRow();
    row.insertCell().textContent = new Date(a.timestamp).toLocaleTimeString([], { hour12:false });
    [a.kind, a.symbol, a.message].forEach((v) => { row.insertCell().textContent = esc(v); });
  }

  if(state.stream_degraded){
    statusEl.textContent = 'Stream degraded';
    statusEl.classList.add('degraded');
  }else{
    statusEl.textContent = 'Live';
    statusEl.classList.remove('degraded');
  }
}

function connectSSE(){
  const source = new EventSource('/stream');
  source.addEventListener('change', refresh);
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(connectSSE, 2000);
  });
}

refresh();
connectSSE();
</script>
</body>
</html>`
